package respond

type RegisterRespond struct {
	Id       int64  `json:"id"`
	Username string `json:"username"`
}

type LoginRespond struct {
	Id        int64  `json:"id"`
	Username  string `json:"username"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

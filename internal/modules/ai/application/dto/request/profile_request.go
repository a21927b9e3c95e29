package request

type BusinessProfileRequest struct {
	CompanyName        string `json:"company_name"`
	ProductDescription string `json:"product_description"`
	TargetAudience     string `json:"target_audience"`
	ToneOfVoice        string `json:"tone_of_voice"`
}

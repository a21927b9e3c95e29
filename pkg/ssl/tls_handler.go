package ssl

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// SecureHandler 安全响应头；sslRedirect 为 true 时把 http 请求跳转到 host:port
func SecureHandler(host string, port int, sslRedirect bool) gin.HandlerFunc {
	opts := secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        sslRedirect,
	}
	if sslRedirect {
		opts.SSLHost = host + ":" + strconv.Itoa(port)
	}
	secureMiddleware := secure.New(opts)

	return func(c *gin.Context) {
		// Process 出错时已经写好了重定向响应
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		c.Next()
	}
}

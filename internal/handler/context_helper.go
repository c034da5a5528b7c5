package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// accountHeader scopes every request to one workspace. Upstream auth
// terminates at the gateway and forwards the resolved account here.
const accountHeader = "X-Account-ID"

func accountFromContext(c *gin.Context) string {
	if account := strings.TrimSpace(c.GetHeader(accountHeader)); account != "" {
		return account
	}
	return strings.TrimSpace(c.Query("account_id"))
}

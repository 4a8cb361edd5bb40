package enroll

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingApprovalURLEscapesNavigationState(t *testing.T) {
	c := &EnrollController{
		Routes: &EnrollControllerRoutes{PendingApproval: "/pending-approval"},
	}

	raw := c.pendingApprovalURL(
		RoleMuseum,
		"Diocese of Saints Peter & Paul",
		"Ana María=Reyes",
		"ana+curator@museum.example",
	)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/pending-approval", parsed.Path)

	query := parsed.Query()
	assert.Equal(t, string(RoleMuseum), query.Get("role"))
	assert.Equal(t, "Diocese of Saints Peter & Paul", query.Get("diocese"))
	assert.Equal(t, "Ana María=Reyes", query.Get("name"))
	assert.Equal(t, "ana+curator@museum.example", query.Get("email"))
}

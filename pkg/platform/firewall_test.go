// pkg/platform/firewall_test.go

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleUFWStatus = `Status: active

To                         Action      From
--                         ------      ----
OpenSSH                    ALLOW       Anywhere
80/tcp                     ALLOW       Anywhere
OpenSSH (v6)               ALLOW       Anywhere (v6)
80/tcp (v6)                ALLOW       Anywhere (v6)
`

func TestRuleListed(t *testing.T) {
	t.Parallel()

	assert.True(t, ruleListed(sampleUFWStatus, "OpenSSH"))
	assert.True(t, ruleListed(sampleUFWStatus, "80/tcp"))
	assert.False(t, ruleListed(sampleUFWStatus, "443/tcp"))
	assert.False(t, ruleListed("Status: inactive\n", "80/tcp"))
}

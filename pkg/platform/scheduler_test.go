// pkg/platform/scheduler_test.go

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCronEntry(t *testing.T) {
	t.Parallel()

	entry := CronEntry("30 2 * * *", "/opt/roster/backup.sh", "/var/log/roster-backup.log")
	assert.Equal(t,
		"30 2 * * * /opt/roster/backup.sh >> /var/log/roster-backup.log 2>&1",
		entry)
}

func TestCronContains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		crontab string
		cmd     string
		want    bool
	}{
		{"empty crontab", "", "/opt/roster/backup.sh", false},
		{
			"entry present",
			"MAILTO=ops@example.com\n30 2 * * * /opt/roster/backup.sh >> /var/log/roster-backup.log 2>&1\n",
			"/opt/roster/backup.sh",
			true,
		},
		{
			"different schedule still counts",
			"0 4 * * * /opt/roster/backup.sh\n",
			"/opt/roster/backup.sh",
			true,
		},
		{
			"commented entry ignored",
			"# 30 2 * * * /opt/roster/backup.sh\n",
			"/opt/roster/backup.sh",
			false,
		},
		{
			"unrelated jobs",
			"15 1 * * * /usr/local/bin/certwatch\n",
			"/opt/roster/backup.sh",
			false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CronContains(tt.crontab, tt.cmd))
		})
	}
}

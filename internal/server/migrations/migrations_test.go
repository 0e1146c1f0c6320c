package migrations

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/memvault/internal/server/notify"
)

var setBody = regexp.MustCompile(`(?s)SET body = '(.*?)'\s+WHERE template_key = 'AUTO_RECEIPT'`)

func TestReceiptTemplate_CountsAndListsFiles(t *testing.T) {
	b, err := Migrations.ReadFile("00004_receipt_file_list.sql")
	require.NoError(t, err)

	up, _, ok := strings.Cut(string(b), "-- +goose Down")
	require.True(t, ok)
	m := setBody.FindStringSubmatch(up)
	require.Len(t, m, 2)

	got := notify.Render(m[1], map[string]string{
		"Name":  "Asha",
		"Flat":  "A-104",
		"Link":  "containers/1",
		"Files": "deed.pdf\nplan.pdf",
		"Count": "2",
	})
	assert.Equal(t, "Dear Asha, 2 file(s) for unit A-104 were filed in containers/1:\ndeed.pdf\nplan.pdf", got)
}

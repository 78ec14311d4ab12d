package emailsvc

import (
	"context"
	"encoding/json"
	"net/mail"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core"
	appfs "github.com/kitab-bazar/server/fs"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestSendEmailTask(t *testing.T) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(appfs.FS, conf.FrontendBaseURL, true, nopLogger{})
	ClearSentMessages()
	t.Cleanup(ClearSentMessages)
	handler := SendEmailTask(NewConsoleServiceMock(conf))
	to := []mail.Address{{Name: "Sita", Address: "sita@kitab.test"}}

	payload := func(t *testing.T, msg core.EmailMessage) json.RawMessage {
		data, err := json.Marshal(msg)
		require.NoError(t, err)
		return data
	}

	t.Run("order placed", func(t *testing.T) {
		err := handler(context.Background(), payload(t, core.EmailMessage{
			To:           to,
			Subject:      "Order OR-ABCD1234 placed",
			TemplateName: "order_placed",
			TemplateData: struct {
				Name          string
				OrderCode     string
				TotalQuantity int
				TotalPrice    int
			}{"Sita", "OR-ABCD1234", 4000, 1200000},
		}))
		require.NoError(t, err)

		sent := SentMessages()
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].TextContent, "Your order OR-ABCD1234 has been placed.")
		assert.Contains(t, sent[0].TextContent, "Books: 4000")
		assert.Contains(t, sent[0].TextContent, "Total: Rs. 1200000")
		assert.Contains(t, sent[0].TextContent, "The Kitab Bazar team", "rendered in the base layout")
		assert.Contains(t, sent[0].HTMLContent, "<td>Rs. 1200000</td>")
	})

	t.Run("password reset", func(t *testing.T) {
		ClearSentMessages()
		err := handler(context.Background(), payload(t, core.EmailMessage{
			To:           to,
			Subject:      "Password reset",
			TemplateName: "password_reset",
			TemplateData: map[string]string{"Name": "Sita", "UID": "uid", "Token": "token"},
		}))
		require.NoError(t, err)
		require.Len(t, SentMessages(), 1)
	})

	t.Run("unknown template", func(t *testing.T) {
		ClearSentMessages()
		err := handler(context.Background(), payload(t, core.EmailMessage{To: to, Subject: "?", TemplateName: "nope"}))
		assert.Equal(t, core.ErrUnknownTemplate, errors.Cause(err))
		assert.Empty(t, SentMessages())
	})
}

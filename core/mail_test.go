package core

import (
	"testing"
	"testing/fstest"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestEmailMessage_Render(t *testing.T) {
	fsys := fstest.MapFS{
		"assets/templates/email/_base.txt":      {Data: []byte(`{{define "base"}}{{template "content" .}} ({{.FrontendBaseURL}}){{end}}`)},
		"assets/templates/email/_base.gohtml":   {Data: []byte(`{{define "base"}}<div>{{template "content" .}}</div>{{end}}`)},
		"assets/templates/email/welcome.txt":    {Data: []byte(`{{define "content"}}Hi {{.Data.Name}}{{end}}`)},
		"assets/templates/email/welcome.gohtml": {Data: []byte(`{{define "content"}}<p>Hi {{.Data.Name}}</p>{{end}}`)},
		"assets/templates/email/textonly.txt":   {Data: []byte(`{{define "content"}}Plain{{end}}`)},
	}
	ParseEmailTemplates(fsys, "https://kitab.test", true, nopLogger{})

	tests := []struct {
		name     string
		msg      EmailMessage
		wantErr  error
		wantText string
		wantHTML string
	}{
		{
			name:     "templated",
			msg:      EmailMessage{TemplateName: "welcome", TemplateData: map[string]string{"Name": "Sita"}},
			wantText: "Hi Sita (https://kitab.test)",
			wantHTML: "<div><p>Hi Sita</p></div>",
		},
		{
			name:     "text only template",
			msg:      EmailMessage{TemplateName: "textonly"},
			wantText: "Plain (https://kitab.test)",
		},
		{
			name:     "plain body",
			msg:      EmailMessage{BodyStr: "hello"},
			wantText: "hello",
		},
		{
			name:    "unknown template",
			msg:     EmailMessage{TemplateName: "nope"},
			wantErr: ErrUnknownTemplate,
		},
		{
			name:    "layouts are not templates",
			msg:     EmailMessage{TemplateName: "_base"},
			wantErr: ErrUnknownTemplate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			err := msg.Render()
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				assert.False(t, msg.HasContent())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, msg.TextContent)
			assert.Equal(t, tt.wantHTML, msg.HTMLContent)
		})
	}
}

package emailsvc

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
)

// SendEmailTask handles core.TaskSendEmail: the payload is a core.EmailMessage.
// Numbers of the template data are decoded as json.Number so they render as they were sent.
func SendEmailTask(svc core.EmailService) core.TaskHandler {
	return func(ctx context.Context, payload json.RawMessage) error {
		msg := new(core.EmailMessage)
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(msg); err != nil {
			return errors.Wrap(err, "decoding email message")
		}
		return svc.SendMessages(ctx, msg)
	}
}

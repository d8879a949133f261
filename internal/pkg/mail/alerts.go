package mail

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/rentbase/rentbase/app/models"
	"github.com/rentbase/rentbase/internal/pkg/env"
)

// OperatorAlerter emails the operator inbox when the delivery engine switches
// an endpoint off after persistent failures.
type OperatorAlerter struct {
	to string
}

// NewOperatorAlerter reads the alert recipient from ALERT_EMAIL. An empty
// recipient disables alerting.
func NewOperatorAlerter() *OperatorAlerter {
	return &OperatorAlerter{to: env.GetEnv("ALERT_EMAIL", "")}
}

func (a *OperatorAlerter) EndpointDisabled(_ context.Context, endpoint *models.WebhookEndpoint) {
	if a.to == "" {
		return
	}
	subject := fmt.Sprintf("Webhook endpoint %d disabled for tenant %d", endpoint.ID, endpoint.TenantID)
	body := fmt.Sprintf(
		"<p>Endpoint <code>%s</code> was disabled after %d consecutive delivery failures.</p>"+
			"<p>The tenant must re-enable it once the receiver is fixed.</p>",
		endpoint.URL, endpoint.FailureCount,
	)
	if err := SendMail(a.to, subject, body); err != nil {
		log.Warnf("[Mail] endpoint-disabled alert: %v", err)
	}
}

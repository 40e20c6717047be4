// Package notify renders and delivers change alerts.
package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/pagewatch/pagewatch/internal/watch"
)

// bodyTmpl is the alert body. Kept deliberately plain; template quality is
// not this engine's concern.
var bodyTmpl = template.Must(template.New("alert").Parse(`<html><body>
<p>A change has been detected on <i>"{{.URL}}"</i> since it was last checked on {{.PreviousCheckedAt}}.</p>
<p><img src="{{.ScreenshotURL}}" width="300px" alt="latest capture" /></p>
{{if .Tier}}<p>You have {{.Remaining}} free checks remaining for this page. Keep alerts coming for {{.Tier.Price}}: <a href="{{.Tier.PaymentLink}}">upgrade</a>.</p>{{end}}
<p><a href="{{.UnsubscribeURL}}">unsubscribe</a></p>
</body></html>`))

type bodyData struct {
	URL               string
	PreviousCheckedAt string
	ScreenshotURL     string
	UnsubscribeURL    string
	Tier              *watch.PriceTier
	Remaining         int
}

// RendererConfig carries the external URL bases baked into messages.
type RendererConfig struct {
	// ScreenshotBaseURL is the public prefix under which uploaded
	// artifacts are reachable.
	ScreenshotBaseURL string
	// UnsubscribeBaseURL is suffixed with the webpage id.
	UnsubscribeBaseURL string
	// FreeQuota is used to compute the remaining-checks figure shown in
	// the upsell block.
	FreeQuota int
}

// Renderer implements watch.Renderer.
type Renderer struct {
	cfg RendererConfig
}

// NewRenderer constructs a Renderer.
func NewRenderer(cfg RendererConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

// Render builds the deliverable message for one change event.
func (r *Renderer) Render(nctx watch.NotificationContext) (watch.Notification, error) {
	data := bodyData{
		URL:               nctx.Page.URL,
		PreviousCheckedAt: nctx.Previous.CheckedAt.Format(time.RFC1123),
		ScreenshotURL:     strings.TrimRight(r.cfg.ScreenshotBaseURL, "/") + "/" + nctx.Current.ArtifactName,
		UnsubscribeURL:    strings.TrimRight(r.cfg.UnsubscribeBaseURL, "/") + "/" + nctx.Page.ID,
		Tier:              nctx.Tier,
		Remaining:         r.cfg.FreeQuota - nctx.PriorChecks,
	}
	if data.Remaining < 0 {
		data.Remaining = 0
	}

	var body strings.Builder
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return watch.Notification{}, fmt.Errorf("render alert body: %w", err)
	}

	return watch.Notification{
		Recipient: nctx.Page.NotificationEmail,
		Subject:   "Website Update Alert | " + displayURL(nctx.Page.URL),
		HTML:      body.String(),
	}, nil
}

// displayURL strips the scheme, query and fragment for the subject line.
func displayURL(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "//"); i >= 0 {
		s = s[i+2:]
	}
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}
	return s
}

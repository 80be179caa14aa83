// 文件路径: internal/alert/message.go
package alert

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// Message is the rendered subject/body pair handed to the notifier.
type Message struct {
	Subject string
	Body    string
}

var subjectTemplates = map[Kind]string{
	KindStartup:       "[sentinel] {{.StoreName}} came online",
	KindRecovery:      "[sentinel] {{.StoreName}} recovered",
	KindOffline:       "[sentinel] ALERT: {{.StoreName}} is offline",
	KindSystemWarning: "[sentinel] {{.StoreName}} system warning",
	KindCameraFailure: "[sentinel] {{.StoreName}} camera failure",
	KindTest:          "[sentinel] test alert for {{.StoreName}}",
}

var bodyTemplates = map[Kind]string{
	KindStartup: `Store {{.StoreName}} ({{.StoreID}}) sent a startup heartbeat at {{.At}}.
{{if .Telemetry}}CPU {{.Telemetry.CPUPercent}}%, memory {{.Telemetry.MemPercent}}%, disk free {{.Telemetry.DiskFreeGB}}GB.{{end}}`,
	KindRecovery: `Store {{.StoreName}} ({{.StoreID}}) is reachable again as of {{.At}}.
{{if .Telemetry}}CPU {{.Telemetry.CPUPercent}}%, memory {{.Telemetry.MemPercent}}%, disk free {{.Telemetry.DiskFreeGB}}GB.{{end}}`,
	KindOffline: `Store {{.StoreName}} ({{.StoreID}}) has not reported a heartbeat since {{.LastHeartbeat}}.
This store is now considered offline. Immediate attention recommended.`,
	KindSystemWarning: `Store {{.StoreName}} ({{.StoreID}}) reported a system warning at {{.At}}: {{.Detail}}`,
	KindCameraFailure: `Store {{.StoreName}} ({{.StoreID}}) reported a camera failure at {{.At}}: {{.Detail}}`,
	KindTest:          `This is a test alert for store {{.StoreName}} ({{.StoreID}}) triggered at {{.At}}.`,
}

// messageContext is the data passed to the subject/body templates.
type messageContext struct {
	StoreID       string
	StoreName     string
	At            string
	LastHeartbeat string
	Detail        string
	Telemetry     *telemetrySummary
}

type telemetrySummary struct {
	CPUPercent float64
	MemPercent float64
	DiskFreeGB float64
}

func render(kind Kind, ctx messageContext) (Message, error) {
	subjTmpl, ok := subjectTemplates[kind]
	if !ok {
		subjTmpl = subjectTemplates[KindTest]
	}
	bodyTmpl, ok := bodyTemplates[kind]
	if !ok {
		bodyTmpl = bodyTemplates[KindTest]
	}

	subject, err := renderTemplate("subject", subjTmpl, ctx)
	if err != nil {
		return Message{}, err
	}
	body, err := renderTemplate("body", bodyTmpl, ctx)
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: subject, Body: body}, nil
}

func renderTemplate(name, tmplContent string, ctx messageContext) (string, error) {
	tmpl, err := template.New(name).Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("alert: parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("alert: render %s template: %w", name, err)
	}
	return buf.String(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}

package notify

import (
	"bytes"
	"servicecheck/features/reconcile"
	"servicecheck/features/services"
	"text/template"
)

const (
	DeactivationSubject    = "Service disabled!"
	ProviderFailureSubject = "API Provider returned invalid response"
)

var deactivationTemplate = template.Must(template.New("deactivation").Parse(
	`Hello
These services were disabled due to deletion or disablement in the provider's API on your website.

{{range .}}Service ID: {{.ID}}
Service name: {{.Name}}

{{end}}`))

var providerFailureTemplate = template.Must(template.New("provider_failure").Parse(
	`Hello
These API providers returned an invalid response while checking their services:

{{range .}}{{.Provider.Name}}{{if .Reason}} ({{.Reason}}){{end}}
{{end}}`))

func renderDeactivation(list []services.Service) (string, error) {
	var buf bytes.Buffer
	if err := deactivationTemplate.Execute(&buf, list); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderProviderFailure(failed []reconcile.FailedProvider) (string, error) {
	var buf bytes.Buffer
	if err := providerFailureTemplate.Execute(&buf, failed); err != nil {
		return "", err
	}
	return buf.String(), nil
}

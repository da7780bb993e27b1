package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

const (
	PaymentPage = "payment.html"
	PendingPage = "pending.html"
)

// Templates parses the checkout pages for gin's HTML renderer.
func Templates() *template.Template {
	return template.Must(template.ParseFS(files, "templates/*.html"))
}

// PaymentView is the data for PaymentPage.
type PaymentView struct {
	PhoneNumber  string
	Amount       string
	ErrorMessage string
}

// PendingView is the data for PendingPage.
type PendingView struct {
	CheckoutRequestID string
	CustomerMessage   string
}

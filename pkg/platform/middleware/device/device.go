// Package device parses the User-Agent header into a structured device
// descriptor for session records.
package device

import (
	"context"
	"net/http"

	"github.com/mssola/useragent"

	"sigede/internal/session/models"
)

type descriptorKey struct{}

// Parse attaches a parsed device descriptor to the request context.
func Parse(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("User-Agent")
		ctx := WithDescriptor(r.Context(), Describe(raw))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Describe parses a raw User-Agent string.
func Describe(raw string) models.DeviceDescriptor {
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	return models.DeviceDescriptor{
		Platform: ua.OS(),
		Browser:  browser + " " + version,
		Mobile:   ua.Mobile(),
		Raw:      raw,
	}
}

// FromContext retrieves the device descriptor set by Parse.
func FromContext(ctx context.Context) (models.DeviceDescriptor, bool) {
	d, ok := ctx.Value(descriptorKey{}).(models.DeviceDescriptor)
	return d, ok
}

// WithDescriptor injects a descriptor directly. Useful for service unit
// tests that don't run the HTTP middleware chain.
func WithDescriptor(ctx context.Context, d models.DeviceDescriptor) context.Context {
	return context.WithValue(ctx, descriptorKey{}, d)
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/shop/internal/cartcache"
	"github.com/dyluth/shop/internal/printer"
	"github.com/dyluth/shop/internal/resolver"
	"github.com/dyluth/shop/internal/session"
	"github.com/dyluth/shop/pkg/storefront"
)

// explain prints err as a user-facing error block and returns the short
// error Cobra sees. Transient failures suggest retrying; everything else
// points the user somewhere else.
func explain(action string, err error) error {
	title := fmt.Sprintf("could not %s", action)

	var (
		mutErr  *cartcache.MutationError
		valErr  *storefront.ValidationError
		ambErr  *resolver.AmbiguousError
		confErr *storefront.ConfirmationError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return printer.Error(title, "Interrupted.", nil)
	case errors.Is(err, context.DeadlineExceeded):
		return printer.Error(title, "Timed out waiting for the server.", []string{"Try again"})
	case session.IsRedirect(err), storefront.IsUnauthenticated(err):
		return printer.Error(title, "You need to be logged in.", []string{"Log in first:\n  shop login"})
	case errors.As(err, &mutErr):
		return printer.Error(title, mutErr.Error(), retrySuggestions(mutErr.Err, "Check your cart:\n  shop cart"))
	case storefront.IsNetwork(err):
		return printer.Error(title, fmt.Sprintf("The storefront could not be reached: %v", err), []string{
			"Check that the backend is running and try again",
			"Point shop at another backend:\n  shop --api-url http://host:8000/api ...",
		})
	case storefront.IsEmptyResource(err):
		return printer.Error(title, "Your cart is empty.", []string{"Add something first:\n  shop cart add <product>"})
	case errors.As(err, &confErr):
		return printer.Error(title, confErr.Error(), []string{"Return to your cart:\n  shop cart"})
	case errors.As(err, &ambErr):
		fmt.Fprintln(printer.Stderr(), resolver.FormatAmbiguousError(ambErr))
		return fmt.Errorf("%s", title)
	case resolver.IsNotFoundError(err), storefront.IsNotFound(err):
		return printer.Error(title, err.Error(), []string{"List products:\n  shop products"})
	case errors.As(err, &valErr):
		return printer.Error(title, validationMessage(valErr), nil)
	case storefront.IsTransient(err):
		return printer.Error(title, err.Error(), []string{"The server had a problem. Try again in a moment"})
	default:
		return printer.Error(title, err.Error(), nil)
	}
}

func retrySuggestions(cause error, elsewhere string) []string {
	if storefront.IsTransient(cause) {
		return []string{"Try again", elsewhere}
	}
	return []string{elsewhere}
}

// validationMessage lists field errors one per line.
func validationMessage(err *storefront.ValidationError) string {
	if len(err.Fields) == 0 {
		return err.Message
	}
	keys := make([]string, 0, len(err.Fields))
	for k := range err.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	if err.Message != "" {
		b.WriteString(err.Message)
		b.WriteString("\n")
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, strings.Join(err.Fields[k], "; "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Package storefront provides the typed Go client and data model for the
// tienda storefront REST API.
//
// # Overview
//
// The backend is the sole source of truth for carts and orders. This package
// only wraps its HTTP endpoints: it never caches, never retries and never
// mutates local state. Caching and optimistic updates live in the
// internal/cartcache, internal/query and internal/session packages, which
// are all built on top of Client.
//
// # Endpoints
//
//	GET    /productos/                      ListProducts
//	GET    /productos/{id}/                 GetProduct
//	GET    /productos/?categoria={id}       ListProductsByCategory
//	GET    /categorias/                     ListCategories
//	GET    /cart/                           GetCart
//	POST   /cart/                           AddToCart
//	PATCH  /cart/{id}/                      UpdateCartItem
//	DELETE /cart/{id}/                      RemoveCartItem
//	GET    /auth/csrf/                      FetchCSRFToken
//	POST   /auth/register/                  Register
//	POST   /auth/login/                     Login
//	POST   /auth/logout/                    Logout
//	GET    /auth/check/                     CheckAuth
//	GET    /auth/profile/                   GetProfile
//	PATCH  /auth/profile/                   UpdateProfile
//	GET    /orders/history/                 OrderHistory
//	POST   /payments/checkout/create-session/ CreateCheckoutSession
//	POST   /payments/checkout/confirm/      ConfirmPayment
//
// # Sessions and CSRF
//
// The server session lives in cookies, so callers pass an http.CookieJar
// (see internal/session for a persistent one). Every mutating request carries
// the X-CSRFToken header once a token is known. The token comes from
// Bootstrap or from the csrftoken cookie; its absence never blocks reads.
//
// # Money
//
// All prices are shopspring/decimal values. The backend sends Django
// DecimalFields as strings and computed prices as floats; decimal accepts both.
//
// # Errors
//
// Every failure is one of the typed errors in errors.go. Use the IsX helpers
// (IsNetwork, IsValidation, IsUnauthenticated, IsEmptyResource,
// IsConfirmation, IsNotFound) rather than comparing messages.
package storefront

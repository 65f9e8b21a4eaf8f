// Package codes normalizes raw scanner and product-list codes into the two
// canonical forms used for matching and classifies them as plain, GS1
// short, or control-mixed.
//
// Everything here is pure: the same input always yields the same result and
// no function fails. Callers choose which canonical form is primary based on
// the returned Type.
package codes

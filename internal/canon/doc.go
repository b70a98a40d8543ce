// Package canon provides the canonical JSON form and the
// domain-separated hashing behind every content address in the
// repository. Calculations and archive documents serialize through
// Marshal and derive their identity through Hash; two objects hash
// equal exactly when their canonical bytes agree.
package canon

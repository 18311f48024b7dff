// services/errors.go
package services

import "fmt"

// NotFoundError marks a lookup for a record the caller named explicitly
// (transaction, product, tier) that does not exist. Controllers map it to 404.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ValidationError marks a request that is structurally valid JSON but
// semantically unusable (missing amount, unpurchasable tier). Controllers map
// it to 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

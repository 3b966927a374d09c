package jwttoken

import (
	"multisig/pkg/domain"
)

// CallerValidatorAdapter exposes JWTService through the middleware's
// CallerValidator interface.
type CallerValidatorAdapter struct {
	service *JWTService
}

func NewCallerValidatorAdapter(service *JWTService) *CallerValidatorAdapter {
	return &CallerValidatorAdapter{service: service}
}

func (a *CallerValidatorAdapter) ValidateCaller(tokenString string) (domain.Identity, error) {
	return a.service.CallerFromToken(tokenString)
}

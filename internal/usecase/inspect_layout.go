package usecase

import (
	"context"
	"fmt"

	"github.com/trebuchet-org/uups-cli/internal/domain/models"
)

// InspectLayoutParams contains parameters for printing a storage layout
type InspectLayoutParams struct {
	ContractID string
}

// InspectLayout resolves an artifact and returns its storage layout
type InspectLayout struct {
	resolver ArtifactResolver
}

// NewInspectLayout creates a new InspectLayout use case
func NewInspectLayout(resolver ArtifactResolver) *InspectLayout {
	return &InspectLayout{resolver: resolver}
}

// Run executes the inspect layout use case
func (uc *InspectLayout) Run(ctx context.Context, params InspectLayoutParams) (*models.LogicalContract, error) {
	contract, err := uc.resolver.Resolve(ctx, params.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.StorageLayout == nil {
		return nil, fmt.Errorf("%s has no storage layout", contract.FullyQualifiedName())
	}
	return contract, nil
}

package ports

import (
	"context"

	"github.com/antinea2359/app-tarot/internal/domain"
)

// Oracle draws readings and produces card images via a generative model.
// Every method is a single request/response exchange with no retries.
type Oracle interface {
	// GenerateReading asks for a randomly chosen card and its interpretation.
	GenerateReading(ctx context.Context) (domain.Reading, error)
	// GenerateImage illustrates a card from its name and visual description.
	GenerateImage(ctx context.Context, description, name string) (domain.ImageArtifact, error)
	// EditImage applies a free-text instruction to an existing card image.
	EditImage(ctx context.Context, current domain.ImageArtifact, instruction string) (domain.ImageArtifact, error)
}

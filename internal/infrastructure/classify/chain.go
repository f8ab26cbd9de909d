package classify

import (
	"context"
	"errors"
	"fmt"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

// ModelChain asks each model in turn and returns the first label from the
// closed set.
type ModelChain []ports.ContentTypeModel

var _ ports.ContentTypeModel = ModelChain(nil)

// ClassifyText implements ports.ContentTypeModel.
func (m ModelChain) ClassifyText(ctx context.Context, url, title string) (string, error) {
	return m.first(func(model ports.ContentTypeModel) (string, error) {
		return model.ClassifyText(ctx, url, title)
	})
}

// ClassifyImage implements ports.ContentTypeModel.
func (m ModelChain) ClassifyImage(ctx context.Context, imageURL string) (string, error) {
	return m.first(func(model ports.ContentTypeModel) (string, error) {
		return model.ClassifyImage(ctx, imageURL)
	})
}

func (m ModelChain) first(call func(ports.ContentTypeModel) (string, error)) (string, error) {
	var errs []error
	for _, model := range m {
		if model == nil {
			continue
		}
		raw, err := call(model)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if label, ok := domain.NormalizeContentType(raw); ok {
			return label, nil
		}
		errs = append(errs, fmt.Errorf("unknown label %q", raw))
	}
	if len(errs) == 0 {
		return "", domain.ErrInferenceUnavailable
	}
	return "", errors.Join(errs...)
}

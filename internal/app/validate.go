package app

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/liquid-forge/forge-architecture/internal/core"
	"github.com/liquid-forge/forge-architecture/internal/policies"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

// Validate checks every document of the registry and returns the full
// report. The result is populated even when the returned error reports a
// failed validation, so callers can print every issue.
func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	set, err := s.loadDocuments(ctx, req.Source)
	if err != nil {
		return ValidateResult{}, err
	}
	report := validateSet(ctx, set, req.ContractTypes)
	result := ValidateResult{Report: report}
	if err := validationError(report, req.Strict); err != nil {
		result.Failed = true
		return result, err
	}
	return result, nil
}

func validateSet(ctx context.Context, set types.DocumentSet, contractTypes []string) types.ValidationReport {
	validator := core.NewDocumentValidator(policies.NewContractTypePolicy(contractTypes))
	return validator.Validate(ctx, set)
}

// validationError is nil when the report has no errors, or no issues at
// all in strict mode.
func validationError(report types.ValidationReport, strict bool) error {
	errs := report.Errors()
	warnings := report.Warnings()
	switch {
	case errs > 0 && strict:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("validation failed: %d error(s), %d warning(s)", errs, warnings))
	case errs > 0:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("validation failed: %d error(s)", errs))
	case strict && warnings > 0:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("validation failed: %d warning(s) in strict mode", warnings))
	}
	return nil
}

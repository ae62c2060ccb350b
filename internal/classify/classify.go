// Package classify turns a decoded repository response into either the
// success variant or a *model.ClassifiedError the UI can address by kind.
package classify

import (
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/schema"
)

// Call identifies the query being classified. It only feeds error details and
// the diagnostic log record.
type Call struct {
	Query string
	model.RepoRef
}

// Classify applies the decision table, first match wins:
//
//  1. decodeErr is a parse failure        -> ParseFailure (400)
//  2. owner or repository is absent       -> NotFound (404)
//  3. repository is NotFoundError         -> NotFound (404)
//  4. repository is OwnerNotActivatedError -> OwnerNotActivated (403)
//  5. otherwise the Repository variant is returned.
//
// Exactly one log record is written per non-success outcome.
func Classify[R any](call Call, owner *contract.Owner[R], decodeErr error) (*R, error) {
	if decodeErr != nil {
		ce := &model.ClassifiedError{
			Kind:   model.ErrorKindParseFailure,
			Status: model.StatusParseFailure,
			Detail: "An unknown error occurred while loading this page. The response did not match the expected shape.",
			Cause:  decodeErr,
		}
		attrs := []any{"query", call.Query, "repo", call.FullName(), "kind", ce.Kind, "error", decodeErr}
		if pe, ok := schema.AsParseError(decodeErr); ok {
			attrs = append(attrs, "paths", pe.Paths())
		}
		slog.Error("response failed contract validation", attrs...)
		return nil, ce
	}

	if owner == nil || owner.Repository == nil {
		return nil, notFound(call, "")
	}

	switch repo := owner.Repository.(type) {
	case *contract.Repository[R]:
		return &repo.Data, nil
	case *contract.NotFoundError:
		return nil, notFound(call, repo.Message)
	case *contract.OwnerNotActivatedError:
		return nil, ownerNotActivated(call, repo.Message)
	default:
		// Decoding only produces the variants above, so this is contract drift.
		ce := &model.ClassifiedError{
			Kind:   model.ErrorKindParseFailure,
			Status: model.StatusParseFailure,
			Detail: "An unknown error occurred while loading this page.",
			Cause:  fmt.Errorf("unexpected repository variant %T", repo),
		}
		slog.Error("unexpected repository variant", "query", call.Query, "repo", call.FullName(), "variant", fmt.Sprintf("%T", repo))
		return nil, ce
	}
}

func notFound(call Call, message string) *model.ClassifiedError {
	slog.Warn("repository not found",
		"query", call.Query,
		"repo", call.FullName(),
		"upstream_message", message,
	)
	return &model.ClassifiedError{
		Kind:   model.ErrorKindNotFound,
		Status: model.StatusNotFound,
		Detail: fmt.Sprintf("Repository `%s` was not found or you do not have access to it.", call.FullName()),
	}
}

func ownerNotActivated(call Call, message string) *model.ClassifiedError {
	link := MembersURL(call.Provider, call.Owner)
	slog.Warn("owner not activated",
		"query", call.Query,
		"repo", call.FullName(),
		"upstream_message", message,
	)
	return &model.ClassifiedError{
		Kind:      model.ErrorKindOwnerNotActivated,
		Status:    model.StatusOwnerNotActivated,
		Detail:    fmt.Sprintf("Activation is required to view this repo. Please [activate your account](%s) on the members page.", link),
		ActionURL: link,
	}
}

// MembersURL is the members page where a seat can be activated.
func MembersURL(provider, owner string) string {
	return "/members/" + provider + "/" + owner
}

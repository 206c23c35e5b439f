package ledger

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/artvpp/books-backend/api/responses"
	"github.com/artvpp/books-backend/api/validators"
	internalledger "github.com/artvpp/books-backend/internal/ledger"
	"github.com/artvpp/books-backend/pkg/enums"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/artvpp/books-backend/pkg/logger"
	"github.com/artvpp/books-backend/pkg/pagination"
)

// Balance returns the running balance of one ledger account.
func Balance(svc internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := parseAccount(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.AccountBalance(r.Context(), account)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"account_name": account,
			"balance":      balance,
		})
	}
}

// Statement returns a paged slice of an account's entries.
func Statement(svc internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := parseAccount(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.AccountStatement(r.Context(), account, from, to, pagination.Params{Limit: limit, Offset: offset})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// EntriesForSource returns the double entries posted for one source event.
func EntriesForSource(svc internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(chi.URLParam(r, "sourceId"))
		id, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source id"))
			return
		}
		entries, err := svc.EntriesForTransaction(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// Account names contain spaces, so the path segment arrives URL-encoded.
func parseAccount(r *http.Request) (enums.LedgerAccount, error) {
	raw := chi.URLParam(r, "accountName")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	account, err := enums.ParseLedgerAccount(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ledger account")
	}
	return account, nil
}

package restservice

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/solestate/estated/internal/core/application"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/interface/rest/permissions"
	"github.com/solestate/estated/pkg/errors"
	"github.com/solestate/estated/pkg/macaroons"
)

const maxBodySize = 1 << 20

type handler struct {
	version string
	svc     application.Service
}

// NewRouter mounts the HTTP API of svc. Admin routes require a macaroon
// unless macaroonSvc is nil.
func NewRouter(
	version string, svc application.Service, macaroonSvc *macaroons.Service,
) http.Handler {
	h := &handler{version, svc}

	r := chi.NewRouter()
	r.Use(requestLogger, panicRecovery, tracing)

	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Route("/properties", func(r chi.Router) {
			r.Post("/", h.listProperty)
			r.Get("/", h.listProperties)
			r.Route("/{address}", func(r chi.Router) {
				r.Get("/", h.getProperty)
				r.Get("/events", h.getPropertyHistory)
				r.Get("/quote", h.quotePurchase)
				r.Post("/buy", h.buyShares)
				r.Get("/positions/{owner}", h.getPosition)
			})
		})
		r.Get("/investors/{owner}/portfolio", h.getPortfolio)
		r.Get("/accounts/{address}", h.getAccount)
		r.With(macaroonAuth(
			macaroonSvc, permissions.Route(http.MethodPost, "/v1/faucet"),
		)).Post("/faucet", h.fund)
		r.With(macaroonAuth(
			macaroonSvc, permissions.Route(http.MethodGet, "/v1/admin/audit"),
		)).Get("/admin/audit", h.audit)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Code:    errors.INVALID_REQUEST.Code,
			Name:    errors.INVALID_REQUEST.Name,
			Message: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Code:    errors.INVALID_REQUEST.Code,
			Name:    errors.INVALID_REQUEST.Name,
			Message: fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path),
		})
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

func (h *handler) listProperty(w http.ResponseWriter, r *http.Request) {
	var req ListPropertyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	property, err := h.svc.ListProperty(r.Context(), domain.ListingTerms{
		Name:            req.Name,
		Location:        req.Location,
		ImageURL:        req.ImageURL,
		PricePerLot:     uint64(req.PricePerLot),
		TotalShares:     uint64(req.TotalShares),
		Issuer:          req.Issuer,
		SettlementAsset: req.SettlementAsset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProperty(*property))
}

func (h *handler) listProperties(w http.ResponseWriter, r *http.Request) {
	var filter application.PropertyFilter
	if v := r.URL.Query().Get("marketplace"); v != "" {
		marketplace, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, errors.INVALID_REQUEST.New("invalid marketplace %q", v).
				WithMetadata(errors.RequestMetadata{Field: "marketplace", Reason: err.Error()}))
			return
		}
		filter.Marketplace = marketplace
	}

	properties, err := h.svc.ListProperties(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list := make([]Property, 0, len(properties))
	for _, p := range properties {
		list = append(list, toProperty(p))
	}
	writeJSON(w, http.StatusOK, map[string][]Property{"properties": list})
}

func (h *handler) getProperty(w http.ResponseWriter, r *http.Request) {
	property, err := h.svc.GetProperty(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProperty(*property))
}

func (h *handler) getPropertyHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.GetPropertyHistory(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]Event{"events": toEvents(events)})
}

func (h *handler) quotePurchase(w http.ResponseWriter, r *http.Request) {
	shares, perr := parseUint(r.URL.Query().Get("shares"), "shares")
	if perr != nil {
		writeError(w, r, perr)
		return
	}

	quote, err := h.svc.QuotePurchase(r.Context(), chi.URLParam(r, "address"), shares)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuote(*quote))
}

func (h *handler) buyShares(w http.ResponseWriter, r *http.Request) {
	var req BuySharesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	receipt, err := h.svc.BuyShares(r.Context(), application.BuySharesRequest{
		Property: chi.URLParam(r, "address"),
		Buyer:    req.Buyer,
		Shares:   uint64(req.Shares),
		Source:   req.Source,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceipt(*receipt))
}

func (h *handler) getPosition(w http.ResponseWriter, r *http.Request) {
	position, err := h.svc.GetPosition(
		r.Context(), chi.URLParam(r, "address"), chi.URLParam(r, "owner"),
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPosition(*position))
}

func (h *handler) getPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.svc.GetPortfolio(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPortfolio(*portfolio))
}

func (h *handler) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.GetAccount(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccount(*account))
}

func (h *handler) fund(w http.ResponseWriter, r *http.Request) {
	var req FundRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.svc.Fund(r.Context(), req.Owner, req.Mint, uint64(req.Amount))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccount(*account))
}

func (h *handler) audit(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Audit(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditReport(*report))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) errors.Error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.INVALID_REQUEST.New("malformed request body").
			WithMetadata(errors.RequestMetadata{Reason: err.Error()})
	}
	return nil
}

func parseUint(value, field string) (uint64, errors.Error) {
	if value == "" {
		return 0, errors.INVALID_REQUEST.New("missing %s", field).
			WithMetadata(errors.RequestMetadata{Field: field})
	}
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.INVALID_REQUEST.New("invalid %s %q", field, value).
			WithMetadata(errors.RequestMetadata{Field: field, Reason: err.Error()})
	}
	return v, nil
}

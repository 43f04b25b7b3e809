package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/recifedata/crimecast/internal/model"
	"github.com/recifedata/crimecast/internal/prediction"
)

// DefaultRankingLimit is the number of ranking rows returned when the
// request does not ask for a limit.
const DefaultRankingLimit = 50

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type lookupRequest struct {
	Neighborhood string `json:"neighborhood" validate:"required"`
}

type assignRequest struct {
	Attributes *model.AttributeVector `json:"attributes" validate:"required"`
}

type predictionRequest struct {
	Neighborhood string   `json:"neighborhood"`
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	Victims      *float64 `json:"victims" validate:"omitempty,gte=0,lte=1000"`
	Suspects     *float64 `json:"suspects" validate:"omitempty,gte=0,lte=1000"`
	Weapon       *string  `json:"weapon" validate:"omitempty,max=64"`
}

func (p predictionRequest) context() model.PredictionContext {
	return model.PredictionContext{
		Neighborhood: p.Neighborhood,
		Year:         p.Year,
		Month:        p.Month,
		Victims:      p.Victims,
		Suspects:     p.Suspects,
		Weapon:       p.Weapon,
	}
}

type batchRequest struct {
	predictionRequest
	Neighborhoods []string `json:"neighborhoods" validate:"max=1000"`
}

// decode reads a JSON body into dst and runs the struct validation rules.
// An empty body decodes to the zero value so the required-field checks
// report what is missing.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &model.ValidationError{
			Field:   "body",
			Reason:  model.ReasonInvalid,
			Message: "request body is not valid JSON: " + err.Error(),
		}
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &model.ValidationError{Field: "body", Reason: model.ReasonInvalid, Message: err.Error()}
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return model.NewMissingField(fe.Field())
	}
	msg := fe.Field() + " failed the " + fe.Tag() + " rule"
	if fe.Param() != "" {
		msg += " (" + fe.Param() + ")"
	}
	return &model.ValidationError{Field: fe.Field(), Reason: model.ReasonInvalid, Message: msg}
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &model.ValidationError{Field: name, Reason: model.ReasonInvalid, Message: name + " must be an integer"}
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	components := make(map[string]string, len(s.deps.Components))
	for name, err := range s.deps.Components {
		if err != nil {
			status = "degraded"
			components[name] = err.Error()
			continue
		}
		components[name] = "ok"
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "components": components})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profiles == nil {
		writeError(w, r, unavailable("neighborhood profiles"))
		return
	}
	all := s.deps.Profiles.ListAll()
	views := make([]profileView, len(all))
	for i, p := range all {
		views[i] = newProfileView(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(views), "profiles": views})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profiles == nil {
		writeError(w, r, unavailable("neighborhood profiles"))
		return
	}
	var req lookupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.deps.Profiles.Lookup(req.Neighborhood)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLookupView(l))
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profiles == nil {
		writeError(w, r, unavailable("neighborhood profiles"))
		return
	}
	clusters := s.deps.Profiles.Clusters()
	views := make([]clusterView, len(clusters))
	for i, c := range clusters {
		views[i] = newClusterView(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(views), "clusters": views})
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profiles == nil {
		writeError(w, r, unavailable("neighborhood profiles"))
		return
	}
	var req assignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.deps.Profiles.Assign(r.Context(), *req.Attributes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAssignmentView(a))
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profiles == nil {
		writeError(w, r, unavailable("neighborhood profiles"))
		return
	}
	limit, err := queryInt(r, "limit", DefaultRankingLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	top := s.deps.Profiles.Ranking(limit)
	views := make([]rankingView, len(top))
	for i, e := range top {
		views[i] = newRankingView(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_analyzed": s.deps.Profiles.Len(),
		"ranking":        views,
	})
}

func (s *Server) handlePredictionMeta(w http.ResponseWriter, r *http.Request) {
	if s.deps.Predictions == nil {
		writeError(w, r, unavailable("prediction model"))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Predictions.Meta())
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if s.deps.Predictions == nil {
		writeError(w, r, unavailable("prediction model"))
		return
	}
	var req predictionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Predictions.Predict(r.Context(), req.context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Batch == nil {
		writeError(w, r, unavailable("prediction model"))
		return
	}
	var req batchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Batch.PredictPeriod(r.Context(), prediction.BatchRequest{
		Year:          req.Year,
		Month:         req.Month,
		Neighborhoods: req.Neighborhoods,
		Victims:       req.Victims,
		Suspects:      req.Suspects,
		Weapon:        req.Weapon,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Aggregates == nil {
		writeError(w, r, unavailable("monthly aggregates"))
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h, err := s.deps.Aggregates.History(chi.URLParam(r, "neighborhood"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

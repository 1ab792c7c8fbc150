package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/internal/store"
)

// 요청 본문 최대 크기 (metrics 표본 포함)
const maxBodyBytes = 32 << 20

// ErrorResponse 에러 응답 본문
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// StatusFor 도메인 에러 → HTTP 상태 코드
func StatusFor(err error) int {
	switch {
	case errors.Is(err, risk.ErrInvalidParameter), errors.Is(err, risk.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON 본문 디코딩 (알 수 없는 필드 거부, 빈 본문 허용)
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

package scenario

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/lossmodel/internal/risk"
)

// Load reads a scenario YAML file and returns it with the raw bytes
// ⭐ SSOT: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Scenario, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read scenario: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("scenario %s: %w", path, err)
	}

	return s, data, nil
}

// Parse decodes and validates scenario YAML
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	s.applyDefaults()

	if err := Validate(&s); err != nil {
		return nil, err
	}

	return &s, nil
}

// Hash generates SHA256 hash from Scenario (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(s *Scenario) (string, error) {
	jsonBytes, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// HashParams 파라미터 + 신뢰수준만으로 해시 (캐시 키)
//
// 같은 입력이면 시뮬레이션 결과도 같으므로 결과 캐시 키로 사용한다.
func HashParams(params risk.SimulationParams, levels []float64) (string, error) {
	key := struct {
		Simulation risk.SimulationParams `json:"simulation"`
		Levels     []float64             `json:"confidence_levels"`
	}{params, levels}

	jsonBytes, err := json.Marshal(key)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

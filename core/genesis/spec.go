package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"solusd/crypto"
	"solusd/native/fixedpoint"
)

// GenesisSpec seeds a fresh deployment: the issuance start time and any
// front ends registered before the first deposit.
type GenesisSpec struct {
	GenesisTime string         `json:"genesisTime"`
	FrontEnds   []FrontEndSpec `json:"frontEnds,omitempty"`

	genesisTimestamp time.Time
}

type FrontEndSpec struct {
	Address      string `json:"address"`
	KickbackRate string `json:"kickbackRate"`

	owner    crypto.Address
	kickback *uint256.Int
}

// Owner returns the parsed front-end address.
func (f FrontEndSpec) Owner() crypto.Address { return f.owner }

// Kickback returns the parsed 1e18-scaled kickback rate.
func (f FrontEndSpec) Kickback() *uint256.Int { return fixedpoint.Clone(f.kickback) }

// NewGenesisSpec builds a validated spec starting at ts with no front ends.
func NewGenesisSpec(ts time.Time) *GenesisSpec {
	return &GenesisSpec{GenesisTime: ts.UTC().Format(time.RFC3339), genesisTimestamp: ts.UTC().Truncate(time.Second)}
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// Validate parses every textual field and rejects duplicates.
func (s *GenesisSpec) Validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime

	seen := make(map[crypto.Address]struct{}, len(s.FrontEnds))
	for i := range s.FrontEnds {
		fe := &s.FrontEnds[i]
		owner, err := crypto.DecodeAddress(strings.TrimSpace(fe.Address))
		if err != nil {
			return fmt.Errorf("frontEnd[%d]: %w", i, err)
		}
		if _, exists := seen[owner]; exists {
			return fmt.Errorf("frontEnd[%d]: duplicate address %s", i, fe.Address)
		}
		seen[owner] = struct{}{}
		kickback, err := fixedpoint.ParseDecimal(fe.KickbackRate)
		if err != nil {
			return fmt.Errorf("frontEnd[%d]: kickbackRate: %w", i, err)
		}
		if kickback.Gt(fixedpoint.DecimalPrecision) {
			return fmt.Errorf("frontEnd[%d]: kickbackRate above 1", i)
		}
		fe.owner = owner
		fe.kickback = kickback
	}
	return nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}

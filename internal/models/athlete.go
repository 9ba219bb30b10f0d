package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// SnatchAttempts is the number of snatch attempts; clean&jerk attempts follow.
	SnatchAttempts = 3
	// TotalAttempts is the number of attempts in a competition.
	TotalAttempts = 6
)

// ChangeKind selects which weight request of an attempt is being set.
type ChangeKind int

const (
	Declaration ChangeKind = iota + 1
	Change1
	Change2
)

func (k ChangeKind) String() string {
	switch k {
	case Declaration:
		return "declaration"
	case Change1:
		return "change1"
	case Change2:
		return "change2"
	default:
		return "unknown"
	}
}

// Attempt holds the weight requests and the recorded result of one attempt.
// Result is positive for a good lift, negative for a no lift and zero for a
// passed attempt. Sequence is the logical time the result was recorded.
type Attempt struct {
	Declaration int    `json:"declaration,omitempty" yaml:"declaration,omitempty"`
	Change1     int    `json:"change1,omitempty" yaml:"change1,omitempty"`
	Change2     int    `json:"change2,omitempty" yaml:"change2,omitempty"`
	Lifted      bool   `json:"lifted" yaml:"lifted"`
	Result      int    `json:"result" yaml:"result"`
	Sequence    uint64 `json:"sequence,omitempty" yaml:"sequence,omitempty"`
}

// Good reports whether the attempt was recorded as a good lift.
func (at Attempt) Good() bool {
	return at.Lifted && at.Result > 0
}

// Athlete is one competitor in a session. It is mutated only through the
// request and result setters below.
type Athlete struct {
	ID                   uuid.UUID              `db:"id" json:"id"`
	LotNumber            int                    `db:"lot_number" json:"lot_number"`
	StartNumber          int                    `db:"start_number" json:"start_number"`
	FirstName            string                 `db:"first_name" json:"first_name"`
	LastName             string                 `db:"last_name" json:"last_name" validate:"required"`
	Gender               Gender                 `db:"gender" json:"gender" validate:"required,oneof=M F"`
	BodyWeight           float64                `db:"body_weight" json:"body_weight" validate:"gte=0"`
	YearOfBirth          int                    `db:"year_of_birth" json:"year_of_birth"`
	Team                 string                 `db:"team" json:"team"`
	ExcludeFromTeam      bool                   `db:"exclude_from_team" json:"exclude_from_team"`
	EntryTotal           int                    `db:"entry_total" json:"entry_total"`
	CustomScore          float64                `db:"custom_score" json:"custom_score"`
	Category             *Category              `db:"-" json:"category"`
	RegistrationCategory *Category              `db:"-" json:"registration_category"`
	Group                *Group                 `db:"-" json:"group"`
	Attempts             [TotalAttempts]Attempt `db:"attempts" json:"attempts"`
}

// FullName returns "LASTNAME, First".
func (a *Athlete) FullName() string {
	last := strings.ToUpper(a.LastName)
	if a.FirstName == "" {
		return last
	}
	return last + ", " + a.FirstName
}

// IsWeighedIn reports whether a body weight has been recorded.
func (a *Athlete) IsWeighedIn() bool {
	return a.BodyWeight > 0
}

// Clone returns a copy that shares only the immutable category and group.
func (a *Athlete) Clone() *Athlete {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// SameAthlete compares athletes by lot number, falling back to id when lots
// have not been drawn.
func SameAthlete(a, b *Athlete) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.LotNumber != 0 || b.LotNumber != 0 {
		return a.LotNumber == b.LotNumber
	}
	return a.ID == b.ID
}

// AttemptsDone counts recorded attempts, passed ones included.
func (a *Athlete) AttemptsDone() int {
	n := 0
	for _, at := range a.Attempts {
		if !at.Lifted {
			break
		}
		n++
	}
	return n
}

// IsFinished reports whether all six attempts are recorded.
func (a *Athlete) IsFinished() bool {
	return a.AttemptsDone() >= TotalAttempts
}

// NextAttemptNumber returns the pending attempt (1..6), or 0 once finished.
func (a *Athlete) NextAttemptNumber() int {
	done := a.AttemptsDone()
	if done >= TotalAttempts {
		return 0
	}
	return done + 1
}

// RequestedWeight is the weight for an attempt: the lifted weight once
// recorded, else the latest of change2, change1, declaration, else the
// automatic progression from the previous attempt.
func (a *Athlete) RequestedWeight(attempt int) int {
	if attempt < 1 || attempt > TotalAttempts {
		return 0
	}
	at := a.Attempts[attempt-1]
	switch {
	case at.Lifted && at.Result != 0:
		return abs(at.Result)
	case at.Change2 > 0:
		return at.Change2
	case at.Change1 > 0:
		return at.Change1
	case at.Declaration > 0:
		return at.Declaration
	}
	return a.automaticProgression(attempt)
}

// automaticProgression is +1 kg after a good lift and the same weight otherwise.
// The first attempt of each lift has no progression.
func (a *Athlete) automaticProgression(attempt int) int {
	if attempt == 1 || attempt == SnatchAttempts+1 {
		return 0
	}
	w := a.RequestedWeight(attempt - 1)
	if a.Attempts[attempt-2].Good() {
		return w + 1
	}
	return w
}

// NextAttemptRequestedWeight returns the weight of the pending attempt, 0 if none.
func (a *Athlete) NextAttemptRequestedWeight() int {
	n := a.NextAttemptNumber()
	if n == 0 {
		return 0
	}
	return a.RequestedWeight(n)
}

// AttemptWeight is the absolute lifted weight of a recorded attempt, 0 otherwise.
func (a *Athlete) AttemptWeight(attempt int) int {
	if attempt < 1 || attempt > TotalAttempts || !a.Attempts[attempt-1].Lifted {
		return 0
	}
	return abs(a.Attempts[attempt-1].Result)
}

// PreviousLiftSequence is the logical time of the last recorded attempt.
func (a *Athlete) PreviousLiftSequence() uint64 {
	done := a.AttemptsDone()
	if done == 0 {
		return 0
	}
	return a.Attempts[done-1].Sequence
}

func (a *Athlete) best(first int) (weight, attemptNumber int) {
	for i := first; i < first+SnatchAttempts; i++ {
		at := a.Attempts[i]
		if at.Good() && at.Result > weight {
			weight = at.Result
			attemptNumber = i - first + 1
		}
	}
	return weight, attemptNumber
}

// BestSnatch returns the heaviest good snatch.
func (a *Athlete) BestSnatch() int {
	w, _ := a.best(0)
	return w
}

// BestSnatchAttemptNumber returns 1..3 for the attempt of the best snatch, 0 if none.
func (a *Athlete) BestSnatchAttemptNumber() int {
	_, n := a.best(0)
	return n
}

// BestCleanJerk returns the heaviest good clean&jerk.
func (a *Athlete) BestCleanJerk() int {
	w, _ := a.best(SnatchAttempts)
	return w
}

// BestCleanJerkAttemptNumber returns 1..3 for the attempt of the best clean&jerk, 0 if none.
func (a *Athlete) BestCleanJerkAttemptNumber() int {
	_, n := a.best(SnatchAttempts)
	return n
}

// Total is best snatch plus best clean&jerk, or 0 if either lift has no good attempt.
func (a *Athlete) Total() int {
	sn, cj := a.BestSnatch(), a.BestCleanJerk()
	if sn == 0 || cj == 0 {
		return 0
	}
	return sn + cj
}

// EffectiveCategory picks the registration or the computed category, falling
// back to the other when the preferred one is missing.
func (a *Athlete) EffectiveCategory(useRegistration bool) *Category {
	if useRegistration {
		if a.RegistrationCategory != nil {
			return a.RegistrationCategory
		}
		return a.Category
	}
	if a.Category != nil {
		return a.Category
	}
	return a.RegistrationCategory
}

// Age at the given year, 0 when the birth year is unknown.
func (a *Athlete) Age(year int) int {
	if a.YearOfBirth <= 0 || year < a.YearOfBirth {
		return 0
	}
	return year - a.YearOfBirth
}

// AgeGroup is the lower bound of the five-year bracket the athlete belongs to.
func (a *Athlete) AgeGroup(year int) int {
	return a.Age(year) / 5 * 5
}

func (a *Athlete) attempt(n int) (*Attempt, error) {
	if n < 1 || n > TotalAttempts {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAttempt, n)
	}
	return &a.Attempts[n-1], nil
}

// SetRequest records a declaration or change for an attempt not yet done.
// A zero weight clears the request.
func (a *Athlete) SetRequest(attempt int, kind ChangeKind, weight int) error {
	at, err := a.attempt(attempt)
	if err != nil {
		return err
	}
	if at.Lifted {
		return fmt.Errorf("%s attempt %d: %w", a.FullName(), attempt, ErrAttemptAlreadyDone)
	}
	if weight < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWeight, weight)
	}
	switch kind {
	case Declaration:
		at.Declaration = weight
	case Change1:
		at.Change1 = weight
	case Change2:
		at.Change2 = weight
	default:
		return fmt.Errorf("unknown change kind %d", kind)
	}
	return nil
}

// SetDeclaration sets the declared weight for an attempt.
func (a *Athlete) SetDeclaration(attempt, weight int) error {
	return a.SetRequest(attempt, Declaration, weight)
}

// SetChange1 sets the first change for an attempt.
func (a *Athlete) SetChange1(attempt, weight int) error {
	return a.SetRequest(attempt, Change1, weight)
}

// SetChange2 sets the second change for an attempt.
func (a *Athlete) SetChange2(attempt, weight int) error {
	return a.SetRequest(attempt, Change2, weight)
}

// RecordLift stores the result of the pending attempt with its logical time.
func (a *Athlete) RecordLift(attempt, result int, seq uint64) error {
	at, err := a.attempt(attempt)
	if err != nil {
		return err
	}
	if at.Lifted {
		return fmt.Errorf("%s attempt %d: %w", a.FullName(), attempt, ErrAttemptAlreadyDone)
	}
	if done := a.AttemptsDone(); attempt != done+1 {
		return fmt.Errorf("%w: expected attempt %d, got %d", ErrAttemptOutOfOrder, done+1, attempt)
	}
	at.Lifted = true
	at.Result = result
	at.Sequence = seq
	return nil
}

// RecordDecision records the pending attempt as good or no lift at the
// requested weight and returns the stored result.
func (a *Athlete) RecordDecision(good bool, seq uint64) (int, error) {
	n := a.NextAttemptNumber()
	if n == 0 {
		return 0, fmt.Errorf("%s: %w", a.FullName(), ErrAttemptAlreadyDone)
	}
	w := a.RequestedWeight(n)
	if w <= 0 {
		return 0, fmt.Errorf("%w: no weight requested for attempt %d", ErrInvalidWeight, n)
	}
	result := w
	if !good {
		result = -w
	}
	return result, a.RecordLift(n, result, seq)
}

// ReverseLift flips the outcome of a recorded attempt (jury decision).
func (a *Athlete) ReverseLift(attempt int, good bool) error {
	at, err := a.attempt(attempt)
	if err != nil {
		return err
	}
	if !at.Lifted || at.Result == 0 {
		return fmt.Errorf("%s attempt %d: %w", a.FullName(), attempt, ErrNoLiftToReverse)
	}
	w := abs(at.Result)
	if good {
		at.Result = w
	} else {
		at.Result = -w
	}
	return nil
}

// SetResult overwrites the result of a recorded attempt and returns the
// previous one.
func (a *Athlete) SetResult(attempt, result int) (int, error) {
	at, err := a.attempt(attempt)
	if err != nil {
		return 0, err
	}
	if !at.Lifted {
		return 0, fmt.Errorf("%s attempt %d: %w", a.FullName(), attempt, ErrNoLiftToReverse)
	}
	old := at.Result
	at.Result = result
	return old, nil
}

// Check20kgRule verifies first snatch + first clean&jerk >= entry total - 20.
// Athletes without an entry total or without both first requests pass.
func (a *Athlete) Check20kgRule() error {
	if a.EntryTotal <= 0 {
		return nil
	}
	sn, cj := a.RequestedWeight(1), a.RequestedWeight(SnatchAttempts+1)
	if sn == 0 || cj == 0 {
		return nil
	}
	if sn+cj < a.EntryTotal-20 {
		return fmt.Errorf("%w: %d + %d < %d - 20", ErrTwentyKiloRule, sn, cj, a.EntryTotal)
	}
	return nil
}

// ShortDump is a one-line summary used in logs and golden files:
// lot, name, requested weight, attempts done, snatch results, clean&jerk results.
func (a *Athlete) ShortDump() string {
	return fmt.Sprintf("%d %s %d %d %s %s",
		a.LotNumber,
		a.FullName(),
		a.NextAttemptRequestedWeight(),
		a.AttemptsDone(),
		a.resultString(0),
		a.resultString(SnatchAttempts),
	)
}

func (a *Athlete) resultString(first int) string {
	parts := make([]string, 0, SnatchAttempts)
	for i := first; i < first+SnatchAttempts; i++ {
		if !a.Attempts[i].Lifted {
			parts = append(parts, "_")
			continue
		}
		parts = append(parts, strconv.Itoa(a.Attempts[i].Result))
	}
	return strings.Join(parts, "/")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Package policy holds the declarative anti-cheat strike rules and the
// scoring rubric. The engine only performs lookups here; all thresholds and
// actions live in data so deployments can tune them via a YAML file without
// touching engine code.
package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/firstround/interviewd/pkg/models"
)

// Rule describes how one anti-cheat event type is punished.
type Rule struct {
	// Severity is minor or major.
	Severity string `yaml:"severity"`
	// Immediate is the action taken on every strike of this type: none or pause.
	Immediate string `yaml:"immediate"`
	// Threshold ends or pauses the session when the per-type strike count
	// reaches it. 0 disables escalation.
	Threshold int `yaml:"threshold"`
	// ThresholdAction is taken when Threshold is reached: pause or end.
	ThresholdAction string `yaml:"thresholdAction"`
	// RescindType names the event that cancels a pending auto-pause countdown
	// caused by this type (e.g. FS_READY rescinds FS_EXIT).
	RescindType string `yaml:"rescindType"`
	// MinDuration filters the event: details.duration below it (seconds)
	// produces no strike. 0 means every event strikes.
	MinDuration float64 `yaml:"minDuration"`
}

// Rubric is the summary scoring weights per dimension (must sum to 1.0).
type Rubric struct {
	Communication  float64 `yaml:"communication"`
	Technical      float64 `yaml:"technical"`
	ProblemSolving float64 `yaml:"problemSolving"`
}

// Policy is the full rule set consulted by the anti-cheat engine and the
// summary generator.
type Policy struct {
	Rules map[string]Rule `yaml:"rules"`
	// MinorPauseThreshold pauses the session when the combined minor strike
	// count reaches it.
	MinorPauseThreshold int `yaml:"minorPauseThreshold"`
	// PauseCountdownSeconds is how long a paused session waits for the
	// rescinding event before auto-ending.
	PauseCountdownSeconds int `yaml:"pauseCountdownSeconds"`
	// FailedVerdictMajors marks the summary verdict "failed" at this many
	// major strikes; any strike at all yields "warning".
	FailedVerdictMajors int    `yaml:"failedVerdictMajors"`
	Rubric              Rubric `yaml:"rubric"`
}

// Default returns the built-in policy table.
func Default() Policy {
	return Policy{
		Rules: map[string]Rule{
			models.EventScreenshotAttempt: {
				Severity:        models.SeverityMajor,
				Immediate:       "pause",
				Threshold:       1,
				ThresholdAction: "end",
			},
			models.EventMultiFace: {
				Severity:        models.SeverityMajor,
				Immediate:       "pause",
				Threshold:       1,
				ThresholdAction: "end",
			},
			models.EventFSExit: {
				Severity:        models.SeverityMajor,
				Immediate:       "pause",
				Threshold:       2,
				ThresholdAction: "end",
				RescindType:     models.EventFSReady,
			},
			models.EventTabSwitch: {
				Severity:        models.SeverityMajor,
				Immediate:       "none",
				Threshold:       2,
				ThresholdAction: "end",
			},
			models.EventBgVoice: {
				Severity:        models.SeverityMajor,
				Immediate:       "none",
				Threshold:       2,
				ThresholdAction: "end",
			},
			models.EventFaceMissing: {
				Severity:    models.SeverityMinor,
				Immediate:   "none",
				MinDuration: 2.0,
				RescindType: models.EventFacePresent,
			},
			models.EventBlur: {
				Severity:    models.SeverityMinor,
				Immediate:   "none",
				RescindType: models.EventBlurCleared,
			},
		},
		MinorPauseThreshold:   3,
		PauseCountdownSeconds: 10,
		FailedVerdictMajors:   1,
		Rubric: Rubric{
			Communication:  0.3,
			Technical:      0.4,
			ProblemSolving: 0.3,
		},
	}
}

// Load returns the default policy with the YAML file at path (when non-empty)
// merged over it. Rules present in the file replace the built-in rule for
// that event type wholesale; absent rules keep their defaults.
func Load(path string) (Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}

	var override Policy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Policy{}, fmt.Errorf("parsing policy file %s: %w", path, err)
	}
	for typ, rule := range override.Rules {
		p.Rules[typ] = rule
	}
	if override.MinorPauseThreshold > 0 {
		p.MinorPauseThreshold = override.MinorPauseThreshold
	}
	if override.PauseCountdownSeconds > 0 {
		p.PauseCountdownSeconds = override.PauseCountdownSeconds
	}
	if override.FailedVerdictMajors > 0 {
		p.FailedVerdictMajors = override.FailedVerdictMajors
	}
	if override.Rubric != (Rubric{}) {
		p.Rubric = override.Rubric
	}
	return p, nil
}

// Countdown returns the auto-pause countdown as a duration.
func (p Policy) Countdown() time.Duration {
	return time.Duration(p.PauseCountdownSeconds) * time.Second
}

// RuleFor looks up the rule for an event type. ok is false for event types
// that never strike (informational events like FS_READY).
func (p Policy) RuleFor(eventType string) (Rule, bool) {
	r, ok := p.Rules[eventType]
	return r, ok
}

// RescindsFor returns the pause-causing event types that eventType rescinds.
func (p Policy) RescindsFor(eventType string) []string {
	var causes []string
	for typ, r := range p.Rules {
		if r.RescindType == eventType {
			causes = append(causes, typ)
		}
	}
	return causes
}

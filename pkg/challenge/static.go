package challenge

import (
	"context"
	"strings"
)

// Static is the hard-coded challenge bank variant. Deterministic: the same
// round_num always produces the same challenge, which is what lets mock
// mode advertise mock_correct and have a scripted peer answer reliably.
type Static struct {
	bank []Challenge
}

// NewStatic returns a Static oracle backed by the built-in bank.
func NewStatic() *Static {
	return &Static{bank: builtinBank()}
}

// Generate returns bank[(roundNum-1) mod len(bank)] with RoundNum and
// Scenario stamped for this round. prevAnswerHash is accepted but unused —
// the static bank is context-free by design.
func (s *Static) Generate(_ context.Context, _ Context, roundNum int, _ string) (Challenge, error) {
	base := s.bank[(roundNum-1)%len(s.bank)]
	base.RoundNum = roundNum
	base.Scenario = scenarioFor(roundNum)
	return base, nil
}

// Validate strips whitespace, uppercases, and accepts iff the first
// character equals the challenge's correct option letter.
func (s *Static) Validate(ch Challenge, answer string) bool {
	trimmed := strings.ToUpper(strings.TrimSpace(answer))
	if trimmed == "" {
		return false
	}
	return string(trimmed[0]) == strings.ToUpper(ch.CorrectOption)
}

// builtinBank returns the fixed sequence of ≥12 built-in challenges.
// Each carries a plausible correct answer and rationale; the
// Scenario/RoundNum fields are overwritten per-round by Generate.
func builtinBank() []Challenge {
	return []Challenge{
		{
			Prompt: "A production pod is CrashLoopBackOff with OOMKilled in its last termination reason. What do you do first?",
			Options: []string{
				"A) Increase the memory limit and redeploy",
				"B) Restart the node",
				"C) Delete the namespace",
				"D) Ignore it, it will recover",
			},
			CorrectOption: "A",
			Rationale:     "OOMKilled points directly at an undersized memory limit.",
		},
		{
			Prompt: "Error rate spikes to 40% exactly at the top of every hour. What's the most likely cause?",
			Options: []string{
				"A) A scheduled cron job or batch task contending for resources",
				"B) Random network noise",
				"C) A cosmic ray bit-flip",
				"D) User error",
			},
			CorrectOption: "A",
			Rationale:     "Fixed-period spikes strongly suggest a scheduled job.",
		},
		{
			Prompt: "Autoscaler is stuck at max replicas but CPU usage per pod is under 10%. What should you check next?",
			Options: []string{
				"A) Whether the scaling metric is misconfigured (e.g. wrong target)",
				"B) Disk capacity of the underlying nodes",
				"C) DNS resolution latency",
				"D) TLS certificate expiry",
			},
			CorrectOption: "A",
			Rationale:     "Low CPU with max replicas points at the scaling signal itself.",
		},
		{
			Prompt: "A service account has a role binding granting cluster-admin but only needs read access to one namespace. What's the right remediation?",
			Options: []string{
				"A) Replace it with a namespaced Role scoped to the needed verbs",
				"B) Leave it, cluster-admin is simpler to manage",
				"C) Delete the service account entirely",
				"D) Grant the same role to all service accounts for consistency",
			},
			CorrectOption: "A",
			Rationale:     "Least privilege: scope the binding down to what's actually used.",
		},
		{
			Prompt: "A deployment rollout is failing health checks after the latest image push. What's the safest immediate action?",
			Options: []string{
				"A) Roll back to the previous known-good revision",
				"B) Scale the deployment to zero replicas",
				"C) Manually edit the running pod's container image",
				"D) Wait indefinitely for it to self-heal",
			},
			CorrectOption: "A",
			Rationale:     "Rollback restores the last known-good state fastest.",
		},
		{
			Prompt: "A schema migration needs to add a NOT NULL column to a table with live traffic. What's the safe sequencing?",
			Options: []string{
				"A) Add the column nullable, backfill, then add the NOT NULL constraint",
				"B) Add NOT NULL directly and let writes fail until backfilled",
				"C) Drop and recreate the table",
				"D) Rename the table during the migration",
			},
			CorrectOption: "A",
			Rationale:     "Nullable-then-backfill-then-constrain avoids write failures mid-migration.",
		},
		{
			Prompt: "Clients on an old API version begin failing after a field's type changed from string to integer. What should have been done instead?",
			Options: []string{
				"A) Introduce a new API version and deprecate the old one on a schedule",
				"B) Change the type in place since it's more correct",
				"C) Ask all clients to update within the hour",
				"D) Revert to the string type and never change it",
			},
			CorrectOption: "A",
			Rationale:     "Breaking changes belong in a new version, not a silent in-place mutation.",
		},
		{
			Prompt: "Monthly cloud spend doubled with no traffic increase. Logs show several large idle VMs. What's the first cost action?",
			Options: []string{
				"A) Right-size or terminate the idle VMs",
				"B) Switch the whole fleet to the largest instance type",
				"C) Disable billing alerts",
				"D) Increase the budget instead of investigating",
			},
			CorrectOption: "A",
			Rationale:     "Idle, oversized compute is the direct cost driver here.",
		},
		{
			Prompt: "An alert fires hundreds of times a day for a condition that self-resolves within seconds and never causes impact. What should change?",
			Options: []string{
				"A) Add a for-duration/hysteresis window so transient blips don't page",
				"B) Page on-call more frequently to build awareness",
				"C) Delete all alerting for that service",
				"D) Increase alert severity to critical",
			},
			CorrectOption: "A",
			Rationale:     "A duration threshold filters transient noise without losing real signal.",
		},
		{
			Prompt: "A dependency has a disclosed critical CVE with a patch available. The dependency is pinned three major versions behind. What's the right first step?",
			Options: []string{
				"A) Evaluate and schedule an incremental upgrade path toward the patched version",
				"B) Ignore it since nothing has exploited it yet",
				"C) Jump straight to the latest major version in production",
				"D) Fork the dependency and never update again",
			},
			CorrectOption: "A",
			Rationale:     "Large version gaps call for an incremental, tested upgrade path.",
		},
		{
			Prompt: "A load balancer reports healthy targets but clients see intermittent 502s. What's a likely root cause to check first?",
			Options: []string{
				"A) Backend connection/keep-alive timeout mismatches with the LB",
				"B) The client's DNS cache",
				"C) The color scheme of the status dashboard",
				"D) The phase of the moon",
			},
			CorrectOption: "A",
			Rationale:     "Timeout mismatches between LB and backend are a classic 502 source.",
		},
		{
			Prompt: "A backup job has been silently failing for two weeks because its target bucket was renamed. What's the correct fix sequence?",
			Options: []string{
				"A) Point the job at the new bucket, verify a successful backup, then alert on backup staleness going forward",
				"B) Assume the old backups are still good enough",
				"C) Disable the backup job since it's clearly broken",
				"D) Rename the bucket back without telling anyone",
			},
			CorrectOption: "A",
			Rationale:     "Fix the target, verify success, then add staleness alerting to prevent recurrence.",
		},
		{
			Prompt: "A feature flag rollout to 5% of traffic causes a latency regression only on that cohort. What's the right next move?",
			Options: []string{
				"A) Disable the flag for that cohort and investigate before expanding",
				"B) Expand to 100% to gather more data",
				"C) Ignore latency since the flag is 'just a flag'",
				"D) Roll back the entire service to a week-old image",
			},
			CorrectOption: "A",
			Rationale:     "Contain the regression to the affected cohort before investigating further.",
		},
	}
}

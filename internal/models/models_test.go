package models

import "testing"

func TestSessionStateCloneIsIndependent(t *testing.T) {
	orig := SessionState{
		ScenarioID: "case",
		History:    []string{"Test Case", "first move"},
		Feedback:   &Feedback{Message: "ok", Kind: FeedbackSuccess},
	}

	clone := orig.Clone()
	clone.History[0] = "changed"
	clone.Feedback.Message = "changed"

	if orig.History[0] != "Test Case" {
		t.Error("clone aliases the history slice")
	}
	if orig.Feedback.Message != "ok" {
		t.Error("clone aliases the feedback pointer")
	}
}

func TestSessionStateCloneNilFields(t *testing.T) {
	clone := SessionState{}.Clone()
	if clone.History != nil || clone.Feedback != nil {
		t.Error("clone should preserve nil history and feedback")
	}
}

package agentic

import (
	"strings"
	"testing"
)

func TestRespond(t *testing.T) {
	tests := []struct {
		query      string
		kind       string
		source     string
		confidence float64
	}{
		{"hi", ResponseGreeting, SourceSystemResponse, 0.95},
		{"Hey There", ResponseGreeting, SourceSystemResponse, 0.95},
		{"thank you", ResponseAcknowledgment, SourceSystemResponse, 0.9},
		{"who are you", ResponseSystemInfo, SourceSystemInfo, 0.95},
		{"help", ResponseHelp, SourceSystemHelp, 0.95},
		{"testing", ResponseAcknowledgment, SourceSystemTest, 0.95},
		{"bye", ResponseGoodbye, SourceSystemResponse, 0.95},
		{"cool stuff", ResponseHelp, SourceSystemResponse, 0.8},
		{"yes please do it now", ResponseSystemInfo, SourceSystemResponse, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Respond(tt.query)
			if got.ResponseType != tt.kind {
				t.Errorf("type = %s, want %s", got.ResponseType, tt.kind)
			}
			if len(got.Sources) != 1 || got.Sources[0] != tt.source {
				t.Errorf("sources = %v, want [%s]", got.Sources, tt.source)
			}
			if got.Confidence != tt.confidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.confidence)
			}
			if strings.TrimSpace(got.Response) == "" {
				t.Error("empty response")
			}
		})
	}
}

func TestRespondAnswerMetadata(t *testing.T) {
	answer := Respond("hello").Answer()
	if answer.Metadata["responseType"] != ResponseGreeting {
		t.Fatalf("metadata = %v", answer.Metadata)
	}
	if _, ok := answer.Metadata["processingTime"]; !ok {
		t.Fatal("processingTime missing")
	}
}

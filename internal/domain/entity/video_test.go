package entity

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from VideoStatus
		to   VideoStatus
		want bool
	}{
		{"uploading to processing", StatusUploading, StatusProcessing, true},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"uploading to completed", StatusUploading, StatusCompleted, false},
		{"uploading to failed", StatusUploading, StatusFailed, false},
		{"completed to processing", StatusCompleted, StatusProcessing, false},
		{"completed to failed", StatusCompleted, StatusFailed, false},
		{"failed to processing", StatusFailed, StatusProcessing, false},
		{"processing to uploading", StatusProcessing, StatusUploading, false},
		{"processing to processing", StatusProcessing, StatusProcessing, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatal("completed and failed must be terminal")
	}
	if StatusUploading.Terminal() || StatusProcessing.Terminal() {
		t.Fatal("uploading and processing must not be terminal")
	}
}

func TestChannelNames(t *testing.T) {
	if got := UserChannel("u1"); got != "user:u1" {
		t.Fatalf("UserChannel = %q", got)
	}
	if got := OrgChannel("o1"); got != "org:o1" {
		t.Fatalf("OrgChannel = %q", got)
	}
}

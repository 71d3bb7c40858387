package dispatch

import (
	"reflect"
	"testing"
)

func TestParseFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    map[string]string
	}{
		{
			"semicolon segments",
			"기능: process; 액션: restart; 대상: hub",
			map[string]string{"capability": "process", "action": "restart", "target": "hub"},
		},
		{
			"newline segments",
			"capability: file\naction: read\npath: /etc/hosts",
			map[string]string{"capability": "file", "action": "read", "path": "/etc/hosts"},
		},
		{
			"korean aliases canonicalized",
			"동작: run; 명령: ls -la; 사유: 점검; 플래그: confirm-exec",
			map[string]string{"action": "run", "command": "ls -la", "reason": "점검", "flag": "confirm-exec"},
		},
		{
			"later duplicate wins",
			"action: restart; action: status",
			map[string]string{"action": "status"},
		},
		{
			"keys case folded",
			"ACTION: restart",
			map[string]string{"action": "restart"},
		},
		{
			"free text ignored",
			"그냥 자유 텍스트\naction: status",
			map[string]string{"action": "status"},
		},
		{
			"value keeps inner colons",
			"command: echo a:b:c",
			map[string]string{"command": "echo a:b:c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFields(tt.payload)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseFields() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		value string
		want  []string
	}{
		{"hub, scheduler,worker", []string{"hub", "scheduler", "worker"}},
		{"hub scheduler", []string{"hub", "scheduler"}},
		{"  hub  ", []string{"hub"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		if got := splitList(tt.value); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestMergeFlags(t *testing.T) {
	tests := []struct {
		name     string
		required []string
		supplied []string
		want     []string
	}{
		{"required only", []string{"confirm-delete"}, nil, []string{"confirm-delete"}},
		{"dedup across sources", []string{"confirm-exec"}, []string{"CONFIRM-EXEC", "force"}, []string{"confirm-exec", "force"}},
		{"sorted output", nil, []string{"zeta", "alpha"}, []string{"alpha", "zeta"}},
		{"empty is nil", nil, nil, nil},
		{"blank entries dropped", []string{"  "}, []string{""}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mergeFlags(tt.required, tt.supplied); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("mergeFlags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitBatch(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		chunks  int
	}{
		{
			"single command is not a batch",
			"기능: process; 액션: restart",
			0,
		},
		{
			"two prefixed commands split",
			"action: status\n운영: 기능: file; 액션: list; 패턴: *.log",
			2,
		},
		{
			"three commands",
			"액션: status\nops: action: restart; target: hub\n운영: 동작: list; 기능: file; 경로: /var/log",
			3,
		},
		{
			"chunk without action marker collapses to single",
			"action: status\n운영: 자유 텍스트 메모",
			0,
		},
		{
			"multi-line fields stay in their chunk",
			"action: restart\ntarget: hub\n운영: action: status",
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitBatch(tt.payload)
			if len(got) != tt.chunks {
				t.Errorf("splitBatch() = %d chunks %q, want %d", len(got), got, tt.chunks)
			}
		})
	}
}

package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/miu200521358/motion_supporter/pkg/domain"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func writeRuleFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestRuleRepository_LoadSplitTargets(t *testing.T) {
	rep := NewRuleRepository()

	tests := []struct {
		name     string
		file     string
		content  string
		expected int
	}{
		{
			name:     "CSV",
			file:     "split.csv",
			content:  "センター,センターX回転,センターY回転,,センターX移動,センターY移動,センターZ移動\n,a,b,c,d,e,f\n足りない,1\n",
			expected: 1,
		},
		{
			name: "YAML",
			file: "split.yaml",
			content: "- source: センター\n  rx: センターX回転\n  ry: センターY回転\n  mx: センターX移動\n" +
				"  my: センターY移動\n  mz: センターZ移動\n",
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, err := rep.LoadSplitTargets(writeRuleFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("LoadSplitTargets() error = %v", err)
			}
			if len(targets) != tt.expected {
				t.Fatalf("targets = %d, want %d", len(targets), tt.expected)
			}
			target := targets[0]
			if target.Source != "センター" || target.Rx != "センターX回転" || target.Rz != "" || target.Mz != "センターZ移動" {
				t.Errorf("target = %+v", target)
			}
			if names := target.TargetNames(); len(names) != 5 {
				t.Errorf("TargetNames() = %v", names)
			}
		})
	}
}

func TestRuleRepository_LoadJoinTargets(t *testing.T) {
	rep := NewRuleRepository()
	path := writeRuleFile(t, "join.csv", "センター,X,Y,Z,MX,MY,MZ\n")

	targets, err := rep.LoadJoinTargets(path)
	if err != nil {
		t.Fatalf("LoadJoinTargets() error = %v", err)
	}
	if len(targets) != 1 || targets[0].Dest != "センター" || targets[0].My != "MY" {
		t.Errorf("targets = %+v", targets)
	}
}

func TestRuleRepository_MorphConditionsShiftJis(t *testing.T) {
	rep := NewRuleRepository()
	conditions := []*domain.MorphCondition{
		{MorphName: "まばたき", Op: domain.COMPARE_GREATER_EQUAL, Value: 0.5, Ratio: 1.2},
		{MorphName: "あ", Op: domain.COMPARE_EQUAL, Value: 1, Ratio: 0.5},
	}

	path := filepath.Join(t.TempDir(), "morph.csv")
	if err := rep.SaveMorphConditions(path, conditions); err != nil {
		t.Fatalf("SaveMorphConditions() error = %v", err)
	}

	loaded, err := rep.LoadMorphConditions(path)
	if err != nil {
		t.Fatalf("LoadMorphConditions() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("conditions = %d", len(loaded))
	}
	for i, c := range loaded {
		if *c != *conditions[i] {
			t.Errorf("conditions[%d] = %+v, want %+v", i, c, conditions[i])
		}
	}
}

func TestRuleRepository_MorphConditionsSkipRows(t *testing.T) {
	rep := NewRuleRepository()
	content := "あ,0.5,より大きい(＞),2\nい,abc,>,1\nう,0.1,???,1\nえ,0.1,<,x\nお,0.2,≦,0\n"
	encoded, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), content)
	if err != nil {
		t.Fatalf("encode error = %v", err)
	}

	loaded, err := rep.LoadMorphConditions(writeRuleFile(t, "morph.csv", encoded))
	if err != nil {
		t.Fatalf("LoadMorphConditions() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("conditions = %+v", loaded)
	}
	if loaded[0].MorphName != "あ" || loaded[0].Op != domain.COMPARE_GREATER {
		t.Errorf("conditions[0] = %+v", loaded[0])
	}
	if loaded[1].MorphName != "お" || loaded[1].Op != domain.COMPARE_LESS_EQUAL {
		t.Errorf("conditions[1] = %+v", loaded[1])
	}
}

func TestRuleRepository_LoadStanceLocks(t *testing.T) {
	rep := NewRuleRepository()
	path := writeRuleFile(t, "stance.yml",
		"- start: 0\n  end: 10\n  ground_bone: 右かかと\n- start: 20\n  end: 5\n  ground_bone: 左かかと\n")

	locks, err := rep.LoadStanceLocks(path)
	if err != nil {
		t.Fatalf("LoadStanceLocks() error = %v", err)
	}
	if len(locks) != 1 {
		t.Fatalf("locks = %+v", locks)
	}
	if !locks[0].Contains(10) || locks[0].Contains(11) || locks[0].GroundBone != "右かかと" {
		t.Errorf("lock = %+v", locks[0])
	}
}

package importer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cbruyndoncx/open-work-protocol/pkg/client"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// taskEntry is one item of a task bundle. Numeric fields are pointers
// so an omitted field takes the default while an explicit zero is sent
// as written and validated by the server.
type taskEntry struct {
	Title          string   `yaml:"title"`
	Description    string   `yaml:"description"`
	EstimatePoints *int     `yaml:"estimate_points"`
	Priority       *int     `yaml:"priority"`
	RequiredSkills []string `yaml:"required_skills"`
	Area           string   `yaml:"area"`
	Tier           *int     `yaml:"tier"`
}

// ParseTaskFile parses a YAML task bundle into task specs bound to
// repo. The document must be a list of task entries.
func ParseTaskFile(data []byte, repo string) ([]client.TaskSpec, error) {
	var entries []taskEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("task bundle must be a YAML list of tasks: %w", err)
	}
	specs := make([]client.TaskSpec, 0, len(entries))
	for _, e := range entries {
		skills := e.RequiredSkills
		if skills == nil {
			skills = []string{}
		}
		specs = append(specs, client.TaskSpec{
			Repo:           repo,
			Title:          e.Title,
			Description:    e.Description,
			EstimatePoints: intOr(e.EstimatePoints, types.DefaultEstimate),
			Priority:       intOr(e.Priority, types.DefaultPriority),
			RequiredSkills: skills,
			Area:           e.Area,
			Tier:           intOr(e.Tier, types.DefaultTier),
		})
	}
	return specs, nil
}

// LoadTaskFile reads and parses a YAML task bundle from disk.
func LoadTaskFile(path, repo string) ([]client.TaskSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task bundle: %w", err)
	}
	return ParseTaskFile(data, repo)
}

func intOr(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

package coordinator

import (
	"fmt"
	"time"

	"DistributedFractals/fractal"
	"DistributedFractals/misc"
	"DistributedFractals/rpc"
	"DistributedFractals/schema"
	"github.com/BrugadaSyndrome/bslogger"
	"gopkg.in/yaml.v3"
)

// JobSettings is one render request of a run
type JobSettings struct {
	Kind   string         `yaml:"kind"`
	Name   string         `yaml:"name"`
	Params fractal.Params `yaml:"params"`
}

type Settings struct {
	logger bslogger.Logger

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	Jobs              []JobSettings `yaml:"jobs"`
	RollCallInterval  time.Duration `yaml:"roll_call_interval"`
	RunName           string        `yaml:"run_name"`
	ServerAddress     string        `yaml:"server_address"`
	Transport         rpc.Transport `yaml:"transport"`
}

func LoadSettings(settingsFile string) (Settings, error) {
	fileBytes, err := misc.ReadFile(settingsFile)
	if err != nil {
		return Settings{}, err
	}
	return ParseSettings(fileBytes)
}

func ParseSettings(data []byte) (Settings, error) {
	s := Settings{
		logger: bslogger.NewLogger("CoordinatorSettings", bslogger.Normal, nil),
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse coordinator settings: %w", err)
	}
	if err := s.Verify(); err != nil {
		return Settings{}, fmt.Errorf("invalid coordinator settings: %w", err)
	}
	s.logger.Debug(s.String())
	return s, nil
}

func (s *Settings) String() string {
	output := "\nCoordinator settings\n"
	output += fmt.Sprintf("Run Name: %s\n", s.RunName)
	output += fmt.Sprintf("My Address: %s (%s)\n", s.ServerAddress, s.Transport)
	output += fmt.Sprintf("Jobs: %d", len(s.Jobs))
	return output
}

// Verify fills unset fields with defaults and rejects jobs whose kind or
// parameters are invalid, so no task is handed out for a bad request
func (s *Settings) Verify() error {
	if s.HeartbeatInterval <= 0 {
		s.HeartbeatInterval = 30 * time.Second
	}
	if s.RollCallInterval <= 0 {
		s.RollCallInterval = time.Minute
	}
	if s.RunName == "" {
		s.RunName = "run_" + time.Now().Format("2006_01_02-03_04_05")
	}
	if s.ServerAddress == "" {
		s.ServerAddress = fmt.Sprintf("%s:%s", misc.GetLocalAddress(), "51000")
	}
	if len(s.Jobs) == 0 {
		return fmt.Errorf("no jobs to render")
	}

	for i := range s.Jobs {
		job := &s.Jobs[i]
		kind, err := fractal.ParseKind(job.Kind)
		if err != nil {
			return fmt.Errorf("job %d: %w", i, err)
		}
		if job.Name == "" {
			job.Name = fmt.Sprintf("%s-%d", kind, i)
		}
		if job.Params == nil {
			job.Params = fractal.Params{}
		}
		if _, err := schema.Normalize(kind, job.Params); err != nil {
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
	}
	return nil
}

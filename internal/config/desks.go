package config

import (
	"fmt"
	"os"
	"strconv"

	"deskplan/internal/models"

	"gopkg.in/yaml.v3"
)

// DefaultDeskCount is the size of the room when no seed file exists.
const DefaultDeskCount = 11

// DeskConfig is one desk of desks.yaml.
type DeskConfig struct {
	ID       int             `yaml:"id"`
	Name     string          `yaml:"name"`
	Type     string          `yaml:"type"`
	Computer *ComputerConfig `yaml:"computer,omitempty"`
}

type ComputerConfig struct {
	Present      bool   `yaml:"present"`
	Kind         string `yaml:"kind"`
	Name         string `yaml:"name"`
	Shutdownable bool   `yaml:"shutdownable"`
	Screens      *int   `yaml:"screens,omitempty"`
}

// DeskDefaults apply to desks that leave a field empty.
type DeskDefaults struct {
	Type    string `yaml:"type"`
	Screens int    `yaml:"screens"`
}

// DesksConfig is the root of desks.yaml.
type DesksConfig struct {
	Desks    []DeskConfig `yaml:"desks"`
	Defaults DeskDefaults `yaml:"defaults"`
}

// LoadDesksConfig loads and validates the desk seed file.
func LoadDesksConfig(path string) (*DesksConfig, error) {
	if path == "" {
		path = "configs/desks.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read desks config: %w", err)
	}

	var cfg DesksConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse desks config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate desks config: %w", err)
	}

	return &cfg, nil
}

// DefaultDesksConfig describes a room of timetable desks without computers.
func DefaultDesksConfig() *DesksConfig {
	cfg := &DesksConfig{Defaults: DeskDefaults{Type: string(models.TypeSchedule)}}
	for i := 0; i < DefaultDeskCount; i++ {
		cfg.Desks = append(cfg.Desks, DeskConfig{ID: i})
	}
	cfg.applyDefaults()
	return cfg
}

func (c *DesksConfig) applyDefaults() {
	if c.Defaults.Type == "" {
		c.Defaults.Type = string(models.TypeSchedule)
	}
	for i := range c.Desks {
		d := &c.Desks[i]
		if d.Type == "" {
			d.Type = c.Defaults.Type
		}
		if d.Computer == nil {
			d.Computer = &ComputerConfig{}
		}
		if d.Computer.Kind == "" {
			if d.Computer.Present {
				d.Computer.Kind = string(models.ComputerCPU)
			} else {
				d.Computer.Kind = string(models.ComputerNone)
			}
		}
		if d.Computer.Screens == nil {
			screens := c.Defaults.Screens
			d.Computer.Screens = &screens
		}
	}
}

// Validate checks the configuration for errors.
func (c *DesksConfig) Validate() error {
	if len(c.Desks) == 0 {
		return fmt.Errorf("no desks defined")
	}
	if !models.BookingType(c.Defaults.Type).Valid() {
		return fmt.Errorf("defaults.type: unknown booking type '%s'", c.Defaults.Type)
	}

	ids := make(map[int]bool)
	for i, d := range c.Desks {
		if d.ID < 0 {
			return fmt.Errorf("desk[%d]: id cannot be negative, got %d", i, d.ID)
		}
		if ids[d.ID] {
			return fmt.Errorf("desk[%d]: duplicate id %d", i, d.ID)
		}
		ids[d.ID] = true

		if !models.BookingType(d.Type).Valid() {
			return fmt.Errorf("desk[%d]: unknown booking type '%s'", i, d.Type)
		}
		if d.Computer != nil {
			if !models.ComputerKind(d.Computer.Kind).Valid() {
				return fmt.Errorf("desk[%d]: unknown computer kind '%s'", i, d.Computer.Kind)
			}
			if s := d.Computer.Screens; s != nil && (*s < 0 || *s > models.MaxScreens) {
				return fmt.Errorf("desk[%d]: screens must be between 0 and %d", i, models.MaxScreens)
			}
		}
	}
	return nil
}

// ToDesks converts the configuration into desks with empty payloads.
func (c *DesksConfig) ToDesks() []*models.Desk {
	out := make([]*models.Desk, 0, len(c.Desks))
	for _, d := range c.Desks {
		computer := models.Computer{Kind: models.ComputerNone}
		if d.Computer != nil {
			computer = models.Computer{
				Present:      d.Computer.Present,
				Kind:         models.ComputerKind(d.Computer.Kind),
				Name:         d.Computer.Name,
				Shutdownable: d.Computer.Shutdownable,
			}
			if d.Computer.Screens != nil {
				computer.Screens = *d.Computer.Screens
			}
		}
		out = append(out, models.NewDesk(strconv.Itoa(d.ID), d.Name, models.BookingType(d.Type), computer))
	}
	return out
}

// String returns a summary of the configuration.
func (c *DesksConfig) String() string {
	withComputer := 0
	for _, d := range c.Desks {
		if d.Computer != nil && d.Computer.Present {
			withComputer++
		}
	}
	return fmt.Sprintf("DesksConfig: %d desks (%d with computer)", len(c.Desks), withComputer)
}

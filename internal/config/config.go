// Package config decodes the external input surface of the simulator — the
// processor description, the ISA table, and the program source — from a
// single YAML document (spec §6). File syntax beyond this decoded shape is
// deliberately out of the core's scope; this package is the boundary.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abhandari/pipesim/internal/assembler"
	"github.com/abhandari/pipesim/internal/capability"
	"github.com/abhandari/pipesim/internal/engine"
	"github.com/abhandari/pipesim/internal/timeline"
	"github.com/abhandari/pipesim/internal/topology"
)

// Unit is the decoded shape of a processor stage.
type Unit struct {
	Name         string   `yaml:"name"`
	Width        int      `yaml:"width"`
	Capabilities []string `yaml:"capabilities"`
	ReadLock     bool     `yaml:"readLock"`
	WriteLock    bool     `yaml:"writeLock"`
	MemAccess    []string `yaml:"memAccess"`
}

// FuncUnit is the decoded shape of a unit together with its predecessor
// names, as spec §6 requires: "{unit: UnitModel, preds: [name]}".
type FuncUnit struct {
	Unit  Unit     `yaml:"unit"`
	Preds []string `yaml:"preds"`
}

// ISARow is one decoded mnemonic/capability pair.
type ISARow struct {
	Mnemonic   string `yaml:"mnemonic"`
	Capability string `yaml:"capability"`
}

// Config is the decoded input document: a processor description, an ISA
// table, and a program's source lines.
type Config struct {
	InPorts       []Unit     `yaml:"inPorts"`
	OutPorts      []FuncUnit `yaml:"outPorts"`
	InOutPorts    []Unit     `yaml:"inOutPorts"`
	InternalUnits []FuncUnit `yaml:"internalUnits"`

	ISA     []ISARow `yaml:"isa"`
	Program []string `yaml:"program"`
}

// LoadConfig reads and decodes a simulator input document from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// validateConfig checks the document is well-formed enough to attempt a
// build; the deeper structural invariants (acyclicity, reachability, ...)
// are enforced by topology.Build, not here.
func validateConfig(cfg *Config) error {
	if len(cfg.InPorts) == 0 && len(cfg.InOutPorts) == 0 {
		return fmt.Errorf("processor description has no entry units")
	}
	if len(cfg.OutPorts) == 0 && len(cfg.InOutPorts) == 0 {
		return fmt.Errorf("processor description has no exit units")
	}
	if len(cfg.ISA) == 0 {
		return fmt.Errorf("ISA table is empty")
	}

	for _, u := range cfg.InPorts {
		if err := validateUnit(u); err != nil {
			return err
		}
	}
	for _, u := range cfg.InOutPorts {
		if err := validateUnit(u); err != nil {
			return err
		}
	}
	for _, fu := range cfg.OutPorts {
		if err := validateUnit(fu.Unit); err != nil {
			return err
		}
	}
	for _, fu := range cfg.InternalUnits {
		if err := validateUnit(fu.Unit); err != nil {
			return err
		}
	}

	return nil
}

func validateUnit(u Unit) error {
	if u.Name == "" {
		return fmt.Errorf("unit has no name")
	}
	if u.Width <= 0 {
		return fmt.Errorf("unit %q: width must be positive", u.Name)
	}
	if len(u.Capabilities) == 0 {
		return fmt.Errorf("unit %q: capabilities must be non-empty", u.Name)
	}
	return nil
}

// DefaultConfig returns the classic 5-stage F/D/X/M/W pipeline of spec §8
// scenario 1: each unit has width 1 and carries ALU and MEM, D performs
// register reads, W commits register writes, and F/M both touch unified
// memory for the ALU and MEM capabilities.
func DefaultConfig() *Config {
	stage := func(name string, readLock, writeLock bool, memAccess []string) Unit {
		return Unit{
			Name:         name,
			Width:        1,
			Capabilities: []string{"ALU", "MEM"},
			ReadLock:     readLock,
			WriteLock:    writeLock,
			MemAccess:    memAccess,
		}
	}

	return &Config{
		InPorts: []Unit{stage("F", false, false, []string{"ALU", "MEM"})},
		OutPorts: []FuncUnit{
			{Unit: stage("W", false, true, nil), Preds: []string{"M"}},
		},
		InternalUnits: []FuncUnit{
			{Unit: stage("D", true, false, nil), Preds: []string{"F"}},
			{Unit: stage("X", false, false, nil), Preds: []string{"D"}},
			{Unit: stage("M", false, false, []string{"ALU", "MEM"}), Preds: []string{"X"}},
		},
		ISA: []ISARow{
			{Mnemonic: "ADD", Capability: "ALU"},
			{Mnemonic: "SUB", Capability: "ALU"},
			{Mnemonic: "LW", Capability: "MEM"},
			{Mnemonic: "SW", Capability: "MEM"},
		},
		Program: []string{
			"ADD R1,R2,R3",
		},
	}
}

func toUnitModel(u Unit) topology.UnitModel {
	return topology.UnitModel{
		Name:         u.Name,
		Width:        u.Width,
		Capabilities: capability.NewSet(u.Capabilities...),
		ReadLock:     u.ReadLock,
		WriteLock:    u.WriteLock,
		MemAccess:    capability.NewSet(u.MemAccess...),
	}
}

func toFuncUnit(fu FuncUnit) topology.FuncUnit {
	return topology.FuncUnit{Unit: toUnitModel(fu.Unit), Preds: fu.Preds}
}

// ProcessorDesc converts the decoded document into the topology package's
// input shape.
func (cfg *Config) ProcessorDesc() topology.ProcessorDesc {
	desc := topology.ProcessorDesc{
		InPorts:    make([]topology.UnitModel, len(cfg.InPorts)),
		OutPorts:   make([]topology.FuncUnit, len(cfg.OutPorts)),
		InOutPorts: make([]topology.UnitModel, len(cfg.InOutPorts)),
	}
	for i, u := range cfg.InPorts {
		desc.InPorts[i] = toUnitModel(u)
	}
	for i, u := range cfg.InOutPorts {
		desc.InOutPorts[i] = toUnitModel(u)
	}
	for i, fu := range cfg.OutPorts {
		desc.OutPorts[i] = toFuncUnit(fu)
	}
	for _, fu := range cfg.InternalUnits {
		desc.InternalUnits = append(desc.InternalUnits, toFuncUnit(fu))
	}
	return desc
}

// ISARows converts the decoded ISA table into capability.Row values.
func (cfg *Config) ISARows() []capability.Row {
	rows := make([]capability.Row, len(cfg.ISA))
	for i, r := range cfg.ISA {
		rows[i] = capability.Row{Mnemonic: r.Mnemonic, Capability: r.Capability}
	}
	return rows
}

// Build assembles the full pipeline described by cfg: it validates the
// processor topology, loads the ISA against it, assembles the program, and
// runs the hazard engine to completion, returning the resulting timeline.
func (cfg *Config) Build() (timeline.Timeline, error) {
	graph, err := topology.Build(cfg.ProcessorDesc())
	if err != nil {
		return timeline.Timeline{}, fmt.Errorf("processor topology: %w", err)
	}

	isa, err := capability.LoadISA(cfg.ISARows(), graph.SupportedCapabilities())
	if err != nil {
		return timeline.Timeline{}, fmt.Errorf("ISA table: %w", err)
	}

	program, err := assembler.Assemble(cfg.Program, isa)
	if err != nil {
		return timeline.Timeline{}, fmt.Errorf("program assembly: %w", err)
	}

	eng := engine.New(graph, program)
	tl, err := eng.Run()
	if err != nil {
		return timeline.Timeline{}, fmt.Errorf("simulation: %w", err)
	}
	return tl, nil
}

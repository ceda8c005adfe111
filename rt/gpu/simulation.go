package gpu

import (
	"fmt"

	"github.com/gekko3d/particlelife/rt/core"
)

// SimulationStage advances the authoritative buffer by one step per dispatch.
type SimulationStage struct {
	device     Device
	store      *ParticleStore
	params     Buffer
	pipeline   ComputePipeline
	bindGroup  BindGroup
	workgroups uint32
}

// NewSimulationStage builds the compute pipeline for kernel and binds the
// params uniform and the store's buffer to it.
func NewSimulationStage(device Device, kernel Kernel, store *ParticleStore) (*SimulationStage, error) {
	s := &SimulationStage{device: device, store: store}

	var err error
	s.params, err = device.CreateBuffer(&BufferDescriptor{
		Label: "SimParams",
		Size:  core.SimParamsSize,
		Usage: BufferUsageUniform | BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("sim params buffer: %w", err)
	}

	s.pipeline, err = device.CreateComputePipeline(&ComputePipelineDescriptor{
		Label:         kernel.Label,
		WGSL:          kernel.WGSL,
		EntryPoint:    kernel.EntryPoint,
		WorkgroupSize: kernel.workgroupSize(),
		Bindings:      []BindingType{BindingUniform, BindingStorage},
		Host:          kernel.Host,
	})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("compute pipeline %q: %w", kernel.Label, err)
	}

	s.bindGroup, err = device.CreateBindGroup(&BindGroupDescriptor{
		Label:    "SimulationBindGroup",
		Pipeline: s.pipeline,
		Entries: []BindGroupEntry{
			{Binding: 0, Buffer: s.params},
			{Binding: 1, Buffer: store.Buffer()},
		},
	})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("simulation bind group: %w", err)
	}

	s.workgroups = WorkgroupCount(store.Count(), kernel.workgroupSize())
	return s, nil
}

// Update writes the per-frame uniform. The write lands before any
// submission that follows it on the queue.
func (s *SimulationStage) Update(params core.SimParams) error {
	return s.device.WriteBuffer(s.params, 0, params.Bytes())
}

// Encode records the dispatch.
func (s *SimulationStage) Encode(enc CommandEncoder) error {
	return enc.Dispatch(s.pipeline, s.bindGroup, s.workgroups, 1, 1)
}

func (s *SimulationStage) Workgroups() uint32 { return s.workgroups }

func (s *SimulationStage) Release() {
	if s.bindGroup != nil {
		s.bindGroup.Release()
		s.bindGroup = nil
	}
	if s.pipeline != nil {
		s.pipeline.Release()
		s.pipeline = nil
	}
	if s.params != nil {
		s.params.Release()
		s.params = nil
	}
}

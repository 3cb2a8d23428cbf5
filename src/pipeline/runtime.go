package pipeline

import (
	"fmt"
	"io/ioutil"

	"github.com/google/uuid"
	"github.com/segmentio/objconv/msgpack"
	"github.com/will-rowe/kdbg/src/version"
)

// Info stores the runtime information
type Info struct {
	RunID     string
	Version   string
	NumProc   int
	Profiling bool
	Count     CountCmd
	Graph     GraphCmd
}

// CountCmd stores the runtime info for the count command
type CountCmd struct {
	KmerSize     int
	Mode         string
	PrefixLength int
	TaskSize     int
	ShardBits    int
	MemoryMB     int
	MaxBadFreq   int
	Threshold    int
	OutputCounts bool
	TotalReads   int64
	TotalKmers   int64
	Distinct     uint64
	Inputs       []string
	OutDir       string
}

// GraphCmd stores the runtime info for the graph command
type GraphCmd struct {
	KmerSize   int
	Mode       string
	MemoryMB   int
	Weighted   bool
	MinWeight  int
	FromReads  bool
	TotalEdges uint64
	Inputs     []string
	OutFile    string
}

// NewInfo returns an Info stamped with a fresh run ID and the current version
func NewInfo(numProc int, profiling bool) *Info {
	return &Info{
		RunID:     uuid.New().String(),
		Version:   version.VERSION,
		NumProc:   numProc,
		Profiling: profiling,
	}
}

// Dump is a method to dump the pipeline info to file
func (Info *Info) Dump(path string) error {
	b, err := msgpack.Marshal(Info)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, b, 0644)
}

// Load is a method to load Info from file
func (Info *Info) Load(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	return Info.LoadFromBytes(data)
}

// LoadFromBytes is a method to load Info from bytes
func (Info *Info) LoadFromBytes(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("kdbg run info appears empty")
	}
	return msgpack.Unmarshal(data, Info)
}

package node

import (
	"os"
	"sync"

	"github.com/google/uuid"
)

// Node describes the running process.
type Node struct {
	ID         string
	Hostname   string
	Version    string
	CommitHash string
}

var Version = "development"
var CommitHash = "unknown"

var (
	nodeID     string
	nodeIDOnce sync.Once
)

func GetNodeInfo() *Node {
	return &Node{
		ID:         getNodeID(),
		Hostname:   hostname(),
		Version:    Version,
		CommitHash: CommitHash,
	}
}

// ClientID returns base suffixed with the first block of the node id, so
// several producer processes can be told apart on the broker.
func ClientID(base string) string {
	if base == "" {
		base = "avro-producer"
	}
	return base + "-" + getNodeID()[:8]
}

func getNodeID() string {
	nodeIDOnce.Do(func() {
		nodeID = uuid.New().String()
	})
	return nodeID
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "localhost"
	}
	return name
}

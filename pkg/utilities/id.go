package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

var (
	snowflakeOnce sync.Once
	snowflakeNode *snowflake.Node
)

// NewSnowflakeID generates a snowflake ID string. The node ID comes from
// SNOWFLAKE_NODE (default 1); the node is initialized once and reused so the
// generator is cheap enough for per-request use. Falls back to a KSUID if the
// node cannot be initialized.
func NewSnowflakeID() string {
	snowflakeOnce.Do(func() {
		nodeID := int64(1)
		if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				nodeID = parsed
			}
		}
		node, err := snowflake.NewNode(nodeID)
		if err != nil {
			return
		}
		snowflakeNode = node
	})
	if snowflakeNode == nil {
		return NewKSUID()
	}
	return snowflakeNode.Generate().String()
}

package snowflake

import (
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once

	errInvalidMachineID   = errors.New("invalid snowflake machine id")
	errInvalidDataCenter  = errors.New("invalid snowflake datacenter id")
	errGeneratorUninitial = errors.New("snowflake generator is not initialized")
)

// Init datacenterID 和 machineID 都是 0~31
func Init(machineID, dataCenterID int64) error {
	var initErr error

	once.Do(func() {
		if machineID < 0 || machineID > 31 {
			initErr = errInvalidMachineID
			return
		}
		if dataCenterID < 0 || dataCenterID > 31 {
			initErr = errInvalidDataCenter
			return
		}

		node, initErr = snowflake.NewNode((dataCenterID << 5) | machineID)
	})

	return initErr
}

func NextID() (int64, error) {
	if node == nil {
		return 0, errGeneratorUninitial
	}

	return node.Generate().Int64(), nil
}

// Generator 出席者 ID 来源，输出 base36 字符串
type Generator struct {
	node *snowflake.Node
}

// NewGenerator 使用 Init 初始化好的全局节点
func NewGenerator() (*Generator, error) {
	if node == nil {
		return nil, errGeneratorUninitial
	}
	return &Generator{node: node}, nil
}

// NewGeneratorWithNode 独立节点，测试和单机工具使用
func NewGeneratorWithNode(nodeID int64) (*Generator, error) {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &Generator{node: n}, nil
}

func (g *Generator) NextID() string {
	return g.node.Generate().Base36()
}

package model

type AgentKV struct {
	Key   string `gorm:"column:key;primaryKey;type:text"`
	Value string `gorm:"column:value;type:text;not null"`
}

func (AgentKV) TableName() string {
	return "agent_kv"
}

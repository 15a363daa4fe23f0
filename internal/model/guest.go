package model

// InviteType 招待区分（CMS 的多选字段原样保存日文值）
type InviteType string

const (
	InviteCeremony   InviteType = "挙式"
	InviteReception  InviteType = "披露宴"
	InviteAfterParty InviteType = "二次会"
)

// AllInviteTypes 按固定的展示顺序排列
var AllInviteTypes = []InviteType{InviteCeremony, InviteReception, InviteAfterParty}

func (t InviteType) Valid() bool {
	switch t {
	case InviteCeremony, InviteReception, InviteAfterParty:
		return true
	}
	return false
}

// CanonicalInvites 去重、去掉未知值，并按 挙式 / 披露宴 / 二次会 排序
func CanonicalInvites(in []InviteType) []InviteType {
	set := make(map[InviteType]bool, len(in))
	for _, t := range in {
		set[t] = true
	}
	out := make([]InviteType, 0, len(set))
	for _, t := range AllInviteTypes {
		if set[t] {
			out = append(out, t)
		}
	}
	return out
}

// Autofill CMS 中指定哪些表单字段用来宾信息预填
type Autofill struct {
	FieldID string `json:"fieldId"`
	Name    bool   `json:"name"`
	Kana    bool   `json:"kana"`
}

// Guest CMS 中的来宾记录，family 字段是同类型的递归引用
type Guest struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Kana     string       `json:"kana,omitempty"`
	Dear     string       `json:"dear,omitempty"`
	Message  string       `json:"message,omitempty"`
	Invite   []InviteType `json:"invite"`
	Autofill *Autofill    `json:"autofill,omitempty"`
	Family   []Guest      `json:"family,omitempty"`
}

// DearBlock 页面「Dear」区块使用的展示数据
type DearBlock struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Kana     string       `json:"kana"`
	Dear     string       `json:"dear"`
	Message  string       `json:"message"`
	Invite   []InviteType `json:"invite"`
	Autofill *Autofill    `json:"autofill,omitempty"`
	Family   []DearBlock  `json:"family"`
}

// ToDearBlock 把 CMS 来宾转换为展示数据。
// dear 缺省时使用 name，message 缺省时为空串；family 只展开一层，孙级一律丢弃。
func ToDearBlock(g Guest) DearBlock {
	block := toDearBlockShallow(g)

	block.Family = make([]DearBlock, 0, len(g.Family))
	for _, member := range g.Family {
		block.Family = append(block.Family, toDearBlockShallow(member))
	}

	return block
}

func toDearBlockShallow(g Guest) DearBlock {
	dear := g.Dear
	if dear == "" {
		dear = g.Name
	}

	invite := make([]InviteType, len(g.Invite))
	copy(invite, g.Invite)

	return DearBlock{
		ID:       g.ID,
		Name:     g.Name,
		Kana:     g.Kana,
		Dear:     dear,
		Message:  g.Message,
		Invite:   invite,
		Autofill: g.Autofill,
		Family:   []DearBlock{},
	}
}

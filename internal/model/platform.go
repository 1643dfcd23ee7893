package model

// SourceType 来源平台枚举
type SourceType string

const (
	SourceKKTIX    SourceType = "kktix"
	SourceIndievox SourceType = "indievox"
	SourceAccupass SourceType = "accupass"
	SourceTixcraft SourceType = "tixcraft"
	SourceIbon     SourceType = "ibon"
	SourceManual   SourceType = "manual"
)

// ListingItem 发现阶段得到的单条候选活动
type ListingItem struct {
	SourceID string   // 平台原生ID
	Title    string   // 列表页标题
	URL      string   // 详情页地址
	ImageURL string   // 列表页缩略图
	Date     string   // 列表页原始日期文本
	Tags     []string // 发现阶段附带的标签（如搜索关键字）
	OrgID    string   // 所属组织（KKTIX）
	Data     any      // 平台原生数据（如 feed entry），详情阶段可直接使用
}

// RawListing 详情阶段产出：(原生ID, 标题, 正文, 候选图片)
type RawListing struct {
	Item            *ListingItem
	SourceID        string
	Title           string
	Body            string // 送入字段抽取的纯文本
	Description     string
	DescriptionHTML string
	Summary         string
	ImageURL        string
	Images          []Image
	Author          string
	PublishedAt     string // RFC3339，空表示未知
}

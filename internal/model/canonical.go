package model

import (
	"time"

	"gorm.io/datatypes"
)

// CanonicalEvent 标准化活动主表（同一来源同一原生ID只保留一条，重复采集只更新）
// ID 为首次入库时生成的 uuid，之后不再变化；去重只看 (source, source_id)
type CanonicalEvent struct {
	ID        string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Source    SourceType `gorm:"column:source;type:varchar(16);not null;uniqueIndex:uq_source_source_id,priority:1" json:"source"`
	SourceID  string     `gorm:"column:source_id;type:varchar(255);not null;uniqueIndex:uq_source_source_id,priority:2" json:"sourceId"`
	SourceURL string     `gorm:"column:source_url;type:varchar(512);not null" json:"sourceUrl"`

	Title           string `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Description     string `gorm:"column:description;type:text;not null" json:"description"`
	DescriptionHTML string `gorm:"column:description_html;type:text" json:"descriptionHtml,omitempty"`
	Summary         string `gorm:"column:summary;type:text" json:"summary"`

	StartDate   time.Time `gorm:"column:start_date;not null;index:idx_start_date" json:"startDate"`
	EndDate     time.Time `gorm:"column:end_date;not null;index:idx_end_date" json:"endDate"`
	PublishedAt time.Time `gorm:"column:published_at;not null" json:"publishedAt"`

	Venue     datatypes.JSONType[Venue]         `gorm:"column:venue;type:jsonb;not null" json:"venue"`
	City      string                            `gorm:"column:city;type:varchar(64);index:idx_city" json:"-"` // 冗余 venue.city，便于按城市筛选
	Ticketing datatypes.JSONType[Ticketing]     `gorm:"column:ticketing;type:jsonb;not null" json:"ticketing"`
	Category  Category                          `gorm:"column:category;type:varchar(32);not null;index:idx_category" json:"category"`
	Tags      datatypes.JSONType[[]string]      `gorm:"column:tags;type:jsonb" json:"tags"`
	Genres    datatypes.JSONType[[]string]      `gorm:"column:genres;type:jsonb" json:"genres"`
	Organizer datatypes.JSONType[Organizer]     `gorm:"column:organizer;type:jsonb;not null" json:"organizer"`
	Images    datatypes.JSONType[[]Image]       `gorm:"column:images;type:jsonb;not null" json:"images"`
	Lineup    datatypes.JSONType[[]LineupEntry] `gorm:"column:lineup;type:jsonb" json:"lineup"`

	// 元数据
	ScrapedAt     time.Time `gorm:"column:scraped_at;not null" json:"scrapedAt"`
	LastCheckedAt time.Time `gorm:"column:last_checked_at;not null" json:"lastCheckedAt"`
	Version       int       `gorm:"column:version;not null;default:1" json:"version"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true;index:idx_is_active" json:"isActive"`
	QualityScore  int       `gorm:"column:quality_score;not null;default:0" json:"qualityScore"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (CanonicalEvent) TableName() string { return "canonical_events" }

// CoverImage 第一张 cover 类型图片为准，没有则取第一张
func (e *CanonicalEvent) CoverImage() (Image, bool) {
	images := e.Images.Data()
	for _, img := range images {
		if img.Type == ImageTypeCover {
			return img, true
		}
	}
	if len(images) > 0 {
		return images[0], true
	}
	return Image{}, false
}

// Venue 场地信息；解析失败时使用 UnconfirmedVenue，永不为空
type Venue struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	District  string   `json:"district,omitempty"`
	Location  Location `json:"location"`
	Capacity  int      `json:"capacity,omitempty"`
	VenueType string   `json:"venueType,omitempty"`
}

// Location 经纬度
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsZero 经纬度均为0视为缺失
func (l Location) IsZero() bool {
	return l.Latitude == 0 && l.Longitude == 0
}

// IsConfirmed 场地名非占位
func (v Venue) IsConfirmed() bool {
	return v.Name != "" && v.Name != UnconfirmedVenueName
}

// Ticketing 票务信息
type Ticketing struct {
	Status         TicketStatus `json:"status"`
	PriceRange     PriceRange   `json:"priceRange"`
	IsFree         bool         `json:"isFree"`
	TicketURL      string       `json:"ticketUrl,omitempty"`
	TicketPlatform string       `json:"ticketPlatform,omitempty"`
}

// PriceRange 票价区间
type PriceRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// Organizer 主办方
type Organizer struct {
	Name           string `json:"name"`
	OrganizationID string `json:"organizationId,omitempty"`
}

// Image 图片URL，type 为 cover/gallery
type Image struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// LineupEntry 演出阵容
type LineupEntry struct {
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Order int    `json:"order,omitempty"`
}

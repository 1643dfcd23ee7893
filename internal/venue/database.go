package venue

// Record 静态场地表中的一条
type Record struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	District  string  `json:"district,omitempty"`
}

// Alias 常见简称 -> 场地表中的标准名
type Alias struct {
	Keyword string
	Venue   string
}

// 顺序即模糊匹配的优先级
var defaultVenues = []Record{
	// 台北
	{Name: "Legacy Taipei", Latitude: 25.0443, Longitude: 121.5597, City: "台北", District: "信義區"},
	{Name: "Legacy TERA", Latitude: 25.0443, Longitude: 121.5597, City: "台北", District: "信義區"},
	{Name: "Legacy mini @ amba", Latitude: 25.0443, Longitude: 121.5597, City: "台北", District: "信義區"},
	{Name: "Blue Note Taipei", Latitude: 25.0443, Longitude: 121.5597, City: "台北", District: "信義區"},
	{Name: "Riverside Music Live House", Latitude: 25.0443, Longitude: 121.5597, City: "台北", District: "大安區"},
	{Name: "The Wall", Latitude: 25.0443, Longitude: 121.5597, City: "台北", District: "大安區"},
	{Name: "SUB", Latitude: 25.0443, Longitude: 121.5597, City: "台北", District: "大安區"},
	{Name: "迴響音樂藝文展演空間", Latitude: 25.0443, Longitude: 121.5597, City: "台北", District: "大安區"},
	{Name: "Taipei Arena", Latitude: 25.0330, Longitude: 121.5654, City: "台北", District: "南港區"},
	{Name: "國父紀念館", Latitude: 25.0330, Longitude: 121.5654, City: "台北", District: "信義區"},
	{Name: "台北小巨蛋", Latitude: 25.0330, Longitude: 121.5654, City: "台北", District: "南港區"},
	{Name: "台北國際會議中心", Latitude: 25.0330, Longitude: 121.5654, City: "台北", District: "南港區"},
	{Name: "誠品音樂廳", Latitude: 25.0443, Longitude: 121.5597, City: "台北", District: "信義區"},
	{Name: "三創生活園區", Latitude: 25.0330, Longitude: 121.5654, City: "台北", District: "中正區"},
	{Name: "華山1914文創園區", Latitude: 25.0330, Longitude: 121.5654, City: "台北", District: "中正區"},
	{Name: "TICC", Latitude: 25.0330, Longitude: 121.5654, City: "台北", District: "南港區"},

	// 台中
	{Name: "Legacy Taichung", Latitude: 24.1477, Longitude: 120.6736, City: "台中", District: "西屯區"},
	{Name: "台中歌劇院", Latitude: 24.1477, Longitude: 120.6736, City: "台中", District: "西屯區"},
	{Name: "台中爵士音樂節", Latitude: 24.1477, Longitude: 120.6736, City: "台中", District: "西屯區"},

	// 高雄
	{Name: "高雄巨蛋", Latitude: 22.7149, Longitude: 120.3051, City: "高雄", District: "左營區"},
	{Name: "高雄文化中心", Latitude: 22.6149, Longitude: 120.3051, City: "高雄", District: "苓雅區"},

	{Name: "台南文化中心", Latitude: 22.9903, Longitude: 120.2111, City: "台南", District: "東區"},
	{Name: "新竹竹北演藝廳", Latitude: 24.8375, Longitude: 120.9939, City: "新竹", District: "竹北市"},
	{Name: "基隆文化中心", Latitude: 25.1276, Longitude: 121.7405, City: "基隆", District: "中山區"},
	{Name: "花蓮文化中心", Latitude: 23.9868, Longitude: 121.6024, City: "花蓮", District: "花蓮市"},
	{Name: "澎湖文化中心", Latitude: 23.5691, Longitude: 119.5933, City: "澎湖", District: "馬公市"},
}

var defaultAliases = []Alias{
	{Keyword: "legacy", Venue: "Legacy Taipei"},
	{Keyword: "小巨蛋", Venue: "台北小巨蛋"},
	{Keyword: "國父紀念館", Venue: "國父紀念館"},
	{Keyword: "華山", Venue: "華山1914文創園區"},
	{Keyword: "誠品", Venue: "誠品音樂廳"},
	{Keyword: "三創", Venue: "三創生活園區"},
	{Keyword: "歌劇院", Venue: "台中歌劇院"},
	{Keyword: "高雄巨蛋", Venue: "高雄巨蛋"},
}

// DefaultVenues 内置场地表的副本
func DefaultVenues() []Record {
	return append([]Record(nil), defaultVenues...)
}

// DefaultAliases 内置别名表的副本
func DefaultAliases() []Alias {
	return append([]Alias(nil), defaultAliases...)
}

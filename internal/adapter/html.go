package adapter

import (
	"net/url"
	"regexp"
	"strings"

	"EventSync/internal/model"

	"github.com/PuerkitoBio/goquery"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// CollapseSpace 连续空白压缩为单个空格
func CollapseSpace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// StripHTML HTML 片段转纯文本（去掉 script/style）
func StripHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CollapseSpace(fragment)
	}
	doc.Find("script, style").Remove()
	return CollapseSpace(doc.Text())
}

func isDecorativeImage(src string) bool {
	lower := strings.ToLower(src)
	return strings.Contains(lower, "icon") || strings.Contains(lower, "pixel") || strings.Contains(lower, "tracking")
}

// ExtractImages 正文中的 <img src>，跳过图标/追踪像素；第一张为 cover
func ExtractImages(fragment string) []model.Image {
	images := []model.Image{}
	if strings.TrimSpace(fragment) == "" {
		return images
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return images
	}
	seen := map[string]struct{}{}
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || isDecorativeImage(src) {
			return
		}
		if _, ok := seen[src]; ok {
			return
		}
		seen[src] = struct{}{}
		imgType := model.ImageTypeGallery
		if len(images) == 0 {
			imgType = model.ImageTypeCover
		}
		images = append(images, model.Image{URL: src, Type: imgType})
	})
	return images
}

// AbsoluteURL 相对地址补全为站点绝对地址
func AbsoluteURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		r.Path = "/" + r.Path
	}
	return b.ResolveReference(r).String()
}

// FirstAttr 依次尝试选择器，返回第一个非空属性
func FirstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v := strings.TrimSpace(doc.Find(sel).First().AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

// Summarize 描述前 n 个字符
func Summarize(description string, n int) string {
	return model.TruncateRunes(strings.TrimSpace(description), n)
}

// CoverImages 单张封面图
func CoverImages(imageURL string) []model.Image {
	if imageURL == "" {
		return []model.Image{}
	}
	return []model.Image{{URL: imageURL, Type: model.ImageTypeCover}}
}

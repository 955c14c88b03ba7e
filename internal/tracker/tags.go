package tracker

import "strings"

// 设备标签中的身份标记
const (
	emailMarker  = "email-->"
	teamIDMarker = "teamId-"
)

// Tags 从设备标签解析出的归属信息
type Tags struct {
	Email  string
	TeamID string
}

// ExtractTags 解析逗号分隔的设备标签。
// 两个标记缺一不可；任一缺失或格式不完整时返回空值，调用方应丢弃该事件。
func ExtractTags(deviceTags string) Tags {
	tags := Tags{}
	if deviceTags == "" {
		return tags
	}

	var emailToken, teamToken string
	for _, token := range strings.Split(deviceTags, ",") {
		if emailToken == "" && strings.Contains(token, emailMarker) {
			emailToken = token
		}
		if teamToken == "" && strings.Contains(token, teamIDMarker) {
			teamToken = token
		}
	}

	if emailToken == "" || teamToken == "" {
		return tags
	}

	emailParts := strings.Split(emailToken, "-->")
	teamParts := strings.Split(teamToken, "-")
	if len(emailParts) < 2 || len(teamParts) < 2 {
		return tags
	}

	tags.Email = emailParts[1]
	tags.TeamID = teamParts[1]
	return tags
}

package models

import (
	"encoding/json"
	"fmt"
)

// AccelerometerProductModel 可识别的加速度计信标类别
const AccelerometerProductModel = 3

// TelemetryEvent 网关上报的信标遥测（MQTT payload，亦即流消息体）
type TelemetryEvent struct {
	DeviceID      string  `json:"deviceId"`
	RSSI          int     `json:"rssi"`
	AccelerationX float64 `json:"accelerationX"`
	AccelerationY float64 `json:"accelerationY"`
	AccelerationZ float64 `json:"accelerationZ"`
	ProductModel  int     `json:"productModel"`
	DeviceTags    string  `json:"deviceTags"`
	ReceivedAt    int64   `json:"receivedAt"` // 网关消费时刻（epoch秒）
}

// IsAccelerometer 是否为可识别的加速度计信标
func (e *TelemetryEvent) IsAccelerometer() bool {
	return e.ProductModel == AccelerometerProductModel
}

// ParseTelemetryEvent 从流消息字段解析遥测事件
// 流消息格式: {"data": "<json>", "timestamp": "<unix>"}
func ParseTelemetryEvent(values map[string]interface{}) (*TelemetryEvent, error) {
	raw, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("stream message missing data field")
	}

	var event TelemetryEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal telemetry event: %w", err)
	}

	if event.DeviceID == "" {
		return nil, fmt.Errorf("telemetry event missing deviceId")
	}

	return &event, nil
}

// Package platform is the BossHub REST API client.
//
// Every call is a POST of a JSON object to {server_url}/{endpoint}. The
// client adds "ts" (unix seconds, fractional) and "device_id" to each body
// and sends the bearer API key, device id and platform name as headers.
// Only 200 and 201 count as success; anything else, including network
// errors, yields a nil result and a *RequestError that callers are free to
// ignore.
//
// The typed helpers mirror the platform's device endpoints:
//
//	device/heartbeat  Heartbeat
//	device/status     UpdateStatus
//	device/log        Log
//	payment/check     CheckPayment
//	sales/record      ReportSale
//	product/info      GetProductInfo
//	device/config     GetConfig
//	firmware/check    CheckOTAUpdate
package platform

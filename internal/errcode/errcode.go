package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如部分记录更新失败但其余已生效）
// - 5xxx：系统错误（需要中断流程）
const (
	OK             = 0
	PartialFailure = 4007
	AccessDenied   = 4003
	NotFound       = 4004
	SystemError    = 5000

	// PermissionDenied 表示存储层拒绝写入，不自动重试。
	PermissionDenied = 4005
)

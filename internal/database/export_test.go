package database

// Classify 仅供外部测试包使用。
var Classify = classify

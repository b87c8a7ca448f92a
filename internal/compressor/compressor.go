// Package compressor 提供整块数据的压缩与解压，用于元数据缓存文件。
package compressor

// Compressor 抽象了“单次压缩/解压”能力。实现必须可并发调用。
type Compressor interface {
	// Compress 将 src 压缩后追加到 dst[:0]，返回压缩后的完整数据。
	Compress(dst, src []byte) (packet []byte, err error)

	// Decompress 将 Compress 的输出 src 解压后追加到 dst[:0]。
	Decompress(dst, src []byte) (plain []byte, err error)

	// Extension 为压缩文件的扩展名（含前导点），不压缩时为空。
	Extension() string
}

// NopCompressor 不做任何压缩/解压，直接返回输入内容。
type NopCompressor struct{}

// 编译期断言：确保 NopCompressor 实现了 Compressor 接口。
var _ Compressor = NopCompressor{}

func (NopCompressor) Compress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Decompress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Extension() string {
	return ""
}

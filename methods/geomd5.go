package methods

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

func Md5Bytes(data []byte) string {

	// 创建一个 MD5 哈希对象
	hash := md5.New()

	// 将数据写入哈希对象
	hash.Write(data)

	// 获取加密结果（字节数组）
	md5Bytes := hash.Sum(nil)

	// 将加密结果转换为十六进制字符串
	md5String := hex.EncodeToString(md5Bytes)

	return md5String
}

// GeomMD5 几何体指纹, 用于重复几何判定
func GeomMD5(g orb.Geometry) string {
	if g == nil {
		return ""
	}
	data, err := wkb.Marshal(g)
	if err != nil {
		return ""
	}
	return Md5Bytes(data)
}

package Transformer

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/axgle/mahonia"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// GbkToUtf8 将GBK编码的字符串转换为UTF-8编码
func GbkToUtf8(s string) string {
	gbkDecoder := simplifiedchinese.GBK.NewDecoder()
	utf8Str, _, err := transform.String(gbkDecoder, s)
	if err != nil {
		return s
	}
	return utf8Str
}

// Utf8ToGbk 将UTF-8编码的字符串转换为GBK编码字节
func Utf8ToGbk(s string) []byte {
	var output bytes.Buffer
	// 创建GBK编码器
	gbkEncoder := simplifiedchinese.GBK.NewEncoder()
	writer := transform.NewWriter(&output, gbkEncoder)
	_, err := writer.Write([]byte(s))
	if err != nil {
		return []byte(s)
	}
	writer.Close()
	return output.Bytes()
}

// DetectCharset 自动探测字节流的字符集名称, 失败返回空串
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return ""
	}
	return result.Charset
}

// NewAttributeDecoder 按字符集名称构造DBF属性解码函数
// 常见中日字符集走x/text, 其余交给mahonia, 都认不出时按GBK兜底
func NewAttributeDecoder(charset string) func(string) string {
	name := strings.ToUpper(strings.TrimSpace(charset))
	switch name {
	case "", "UTF-8", "UTF8", "ASCII", "ISO-8859-1":
		return func(s string) string { return s }
	case "GBK", "GB2312", "GB-2312", "CP936":
		return GbkToUtf8
	case "GB18030", "GB-18030":
		decoder := simplifiedchinese.GB18030.NewDecoder()
		return func(s string) string {
			out, _, err := transform.String(decoder, s)
			if err != nil {
				return s
			}
			return out
		}
	case "SHIFT_JIS", "SHIFT-JIS", "SJIS", "CP932", "WINDOWS-31J":
		decoder := japanese.ShiftJIS.NewDecoder()
		return func(s string) string {
			out, _, err := transform.String(decoder, s)
			if err != nil {
				return s
			}
			return out
		}
	}
	if decoder := mahonia.NewDecoder(strings.ToLower(name)); decoder != nil {
		return func(s string) string {
			return decoder.ConvertString(s)
		}
	}
	return GbkToUtf8
}

// EncodeAttribute 按目标编码输出DBF属性字节, 写回shapefile时使用
func EncodeAttribute(value string, encoding string) []byte {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "utf-8", "utf8", "":
		return []byte(value)
	case "cp932", "shift_jis", "sjis":
		var output bytes.Buffer
		writer := transform.NewWriter(&output, japanese.ShiftJIS.NewEncoder())
		if _, err := writer.Write([]byte(value)); err != nil {
			return []byte(value)
		}
		writer.Close()
		return output.Bytes()
	default:
		return Utf8ToGbk(value)
	}
}

// CleanAttributeValue 清理空字符和其他非法字符
func CleanAttributeValue(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == 0x00 || !utf8.ValidRune(r) {
			return -1 // 移除非法字符
		}
		return r
	}, raw)
	if !utf8.ValidString(cleaned) {
		cleaned = string([]rune(cleaned)) // 强制转换为 UTF-8
	}
	return strings.TrimSpace(cleaned)
}

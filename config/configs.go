package config

import (
	"encoding/xml"
	"fmt"
	"os"
)

var MainOutRouter string
var MainRouter string
var DSN string
var Dbname string
var Download string
var Language string
var GeocoderURL string
var GeocoderAgent string
var MainConfig Config

type Config struct {
	XMLName        xml.Name `xml:"config"`
	MainRouter     string   `xml:"MainRouter"`
	MainOutRouter  string   `xml:"MainOutRouter"`
	Dbname         string   `xml:"dbname"`
	Host           string   `xml:"host"`
	Port           string   `xml:"port"`
	Username       string   `xml:"user"`
	Password       string   `xml:"password"`
	Download       string   `xml:"download"`
	SessionBackend string   `xml:"SessionBackend"`
	SessionTTL     int      `xml:"SessionTTL"`
	MaxSession     int      `xml:"MaxSession"`
	MaxUploadMB    int      `xml:"MaxUploadMB"`
	Language       string   `xml:"language"`
	CORSOrigins    string   `xml:"CORSOrigins"`
	VenueBuffer    float64  `xml:"VenueBuffer"`
	Geocoder       string   `xml:"Geocoder"`
	GeocoderURL    string   `xml:"GeocoderURL"`
	GeocoderAgent  string   `xml:"GeocoderAgent"`
	GeocoderWait   float64  `xml:"GeocoderWait"`
	GeocoderCache  int      `xml:"GeocoderCache"`
	KeywordFile    string   `xml:"KeywordFile"`
	CategoryFile   string   `xml:"CategoryFile"`
	MappingFile    string   `xml:"MappingFile"`
}

func init() {
	// 默认配置, config.xml缺失时直接使用
	MainConfig.MainRouter = "0.0.0.0:8426"
	MainConfig.MainOutRouter = "127.0.0.1:8426"
	MainConfig.Download = "./data"
	MainConfig.SessionBackend = "memory"
	MainConfig.SessionTTL = 24
	MainConfig.MaxSession = 5
	MainConfig.MaxUploadMB = 1024
	MainConfig.Language = "en"
	MainConfig.CORSOrigins = "http://localhost:5173"
	MainConfig.Geocoder = "nominatim"
	MainConfig.GeocoderURL = "https://nominatim.openstreetmap.org"
	MainConfig.GeocoderAgent = "IndoorMap/1.0"
	MainConfig.GeocoderWait = 8
	MainConfig.GeocoderCache = 900
	MainConfig.KeywordFile = "./configs/filename_keywords.json"
	MainConfig.CategoryFile = "./configs/unit_categories.json"
	MainConfig.MappingFile = "./configs/company_mappings.json"

	xmlFile, err := os.Open("config.xml")
	if err != nil {
		fmt.Println("Error  opening  file:", err)
	} else {
		defer xmlFile.Close()
		xmlDecoder := xml.NewDecoder(xmlFile)
		err = xmlDecoder.Decode(&MainConfig)
		if err != nil {
			fmt.Println("Error  decoding  XML:", err)
		}
	}
	if MainConfig.SessionTTL <= 0 {
		MainConfig.SessionTTL = 24
	}
	if MainConfig.MaxSession <= 0 {
		MainConfig.MaxSession = 5
	}
	if MainConfig.MaxUploadMB <= 0 {
		MainConfig.MaxUploadMB = 1024
	}

	MainOutRouter = MainConfig.MainOutRouter
	MainRouter = MainConfig.MainRouter
	Dbname = MainConfig.Dbname
	Download = MainConfig.Download
	Language = MainConfig.Language
	GeocoderURL = MainConfig.GeocoderURL
	GeocoderAgent = MainConfig.GeocoderAgent

	// 未配置host时DSN留空, 走本地SQLite
	if MainConfig.Host != "" {
		DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC", MainConfig.Host, MainConfig.Username, MainConfig.Password, MainConfig.Dbname, MainConfig.Port)
	}
}

package utils

import (
	"io/ioutil"
	"os"

	"JDubboFrame/jlog"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ServerConf *ServerConfig
var ClientConf *ClientConfig

//ServerConfig 服务端配置
type ServerConfig struct {
	Host       string //监听ip
	TcpPort    int    //监听端口
	ServerName string //服务名
	ServerId   string //服务id

	Transporter   string //传输层实现名，tcp或ws
	Serialization string //序列化实现名
	Payload       int    //单帧消息体上限(字节)
	Filters       string //激活的过滤器名单，逗号分隔
	Accesslog     bool   //是否打开访问日志

	MaxConn int //允许的最大连接个数
}

//ClientConfig 客户端配置
type ClientConfig struct {
	RemoteHost    string //远程服务器ip
	RemoteTcpPort int    //远程服务器端口
	ClientName    string
	ClientId      string

	Transporter   string //传输层实现名
	Serialization string //序列化实现名
	TimeoutMs     int    //单次调用超时(毫秒)
	HeartbeatMs   int    //心跳间隔(毫秒)，0表示不发心跳
}

/*
   @brief:给服务端配置填上缺省值
*/
func InitServer() {
	ServerConf = &ServerConfig{
		ServerName:    "JDubboServer",
		Host:          "0.0.0.0",
		TcpPort:       20880,
		Transporter:   "tcp",
		Serialization: "gob",
		MaxConn:       12000,
	}
}

/*
   @brief:给客户端配置填上缺省值
*/
func InitClient() {
	ClientConf = &ClientConfig{
		ClientName:    "JDubboClient",
		RemoteHost:    "127.0.0.1",
		RemoteTcpPort: 20880,
		Transporter:   "tcp",
		Serialization: "gob",
		TimeoutMs:     15000,
	}
}

/*
    @brief:读取服务端的json配置文件
	@param [in] configFile:配置文件路径
*/
func (s *ServerConfig) Load(configFile string) error {
	data, err := loadConfigFile(configFile)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(data, s); err != nil {
		return errors.Wrapf(err, "parse config file %s", configFile)
	}
	ServerConf = s
	jlog.StdLogger.Info("server config: ", *s)
	return nil
}

/*
    @brief:读取客户端的json配置文件
	@param [in] configFile:配置文件路径
*/
func (c *ClientConfig) Load(configFile string) error {
	data, err := loadConfigFile(configFile)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config file %s", configFile)
	}
	ClientConf = c
	jlog.StdLogger.Info("client config: ", *c)
	return nil
}

func loadConfigFile(configFile string) ([]byte, error) {
	exists, _ := PathExists(configFile)
	if !exists {
		return nil, errors.Errorf("config file %s is not exist", configFile)
	}
	data, err := ioutil.ReadFile(configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", configFile)
	}
	return data, nil
}

/*
    @brief:判断路径是否存在
	@param [in] path:路径
*/
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

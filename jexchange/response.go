package jexchange

//响应状态码
const (
	StatusOK              byte = 20
	StatusClientTimeout   byte = 30
	StatusServerTimeout   byte = 31
	StatusBadRequest      byte = 40
	StatusBadResponse     byte = 50
	StatusServiceNotFound byte = 60
	StatusServiceError    byte = 70
	StatusServerError     byte = 80
	StatusClientError     byte = 90
)

//Response 交换层的响应消息，Id等于来时请求的Id
type Response struct {
	Id       uint64
	Version  string
	Status   byte
	Event    bool        //是否是事件帧，事件且Result为nil的是心跳
	ErrorMsg string      //Status不是OK时的错误信息
	Result   interface{} //Status是OK时的调用结果
}

/*
    @brief:构造一个响应
	@param [in] id:对应请求的id
*/
func NewResponse(id uint64) *Response {
	return &Response{Id: id, Status: StatusOK}
}

/*
    @brief:构造一个心跳响应
	@param [in] id:对应心跳请求的id
*/
func NewHeartbeatResponse(id uint64) *Response {
	res := NewResponse(id)
	res.Event = true
	return res
}

/*
   @brief:是否是心跳帧
*/
func (res *Response) IsHeartbeat() bool {
	return res.Event && res.Result == nil
}

/*
   @brief:调用是否成功
*/
func (res *Response) IsOK() bool {
	return res.Status == StatusOK
}

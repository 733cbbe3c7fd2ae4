package jext

import (
	"io/fs"
	"sync"
)

//描述符文件的三个查找根，文件名是扩展点的全限定标识
const (
	internalDirectory = "META-INF/jdubbo/internal/"
	userDirectory     = "META-INF/jdubbo/"
	servicesDirectory = "META-INF/services/"
)

var (
	providersLock sync.RWMutex
	providers     []fs.FS
)

/*
    @brief:登记一棵描述符文件树，实现包在init中用go:embed嵌入自己的META-INF后调用
	@param [in] fsys:文件树
*/
func AddProviderFS(fsys fs.FS) {
	if fsys == nil {
		return
	}
	providersLock.Lock()
	defer providersLock.Unlock()
	providers = append(providers, fsys)
}

/*
    @brief:在所有登记的文件树中读出同名描述符文件
	@param [in] fileName:带查找根前缀的文件名
	@return:每棵文件树中该文件的内容，没有该文件的树被跳过
*/
func readDescriptors(fileName string) [][]byte {
	providersLock.RLock()
	fss := make([]fs.FS, len(providers))
	copy(fss, providers)
	providersLock.RUnlock()

	var out [][]byte
	for _, fsys := range fss {
		data, err := fs.ReadFile(fsys, fileName)
		if err != nil {
			continue
		}
		out = append(out, data)
	}
	return out
}

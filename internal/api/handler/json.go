package handler

import jsoniter "github.com/json-iterator/go"

// serialização das respostas da API com jsoniter, compatível com a stdlib
var json = jsoniter.ConfigCompatibleWithStandardLibrary
